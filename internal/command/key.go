package command

// KeyType names the keys the processor understands. Anything else arrives as
// KeyRune with the typed character.
type KeyType int

const (
	KeyRune KeyType = iota
	KeyEnter
	KeyBackspace
	KeyEsc
	KeyUp
	KeyDown
	KeyPgUp
	KeyPgDown
	KeyHome
	KeyEnd
	KeyInterrupt
	KeyOther
)

// Key is one keystroke.
type Key struct {
	Type KeyType
	Rune rune
}

// Rune builds a KeyRune keystroke.
func Rune(r rune) Key {
	return Key{Type: KeyRune, Rune: r}
}

// Keys turns a string into one KeyRune per character, useful for typed text.
func Keys(s string) []Key {
	keys := make([]Key, 0, len(s))
	for _, r := range s {
		keys = append(keys, Rune(r))
	}
	return keys
}
