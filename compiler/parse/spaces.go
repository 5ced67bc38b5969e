package parse

type (
	Spaces uint64
)

var (
	Space    = NewSpaces(' ')
	SpaceTab = NewSpaces(' ', '\t')
	SpaceAll = NewSpaces(' ', '\t', '\r', '\n')
)

func NewSpaces(skip ...byte) (ss Spaces) {
	for _, q := range skip {
		if q >= 64 {
			panic("too high char code")
		}

		ss |= 1 << q
	}

	return
}

func (s Spaces) Skip(b []byte, st int) (i int) {
	i = st

	for i < len(b) && b[i] < 64 && s&(1<<b[i]) != 0 {
		i++
	}

	return
}

// SkipComments skips spaces and line comments.
func (s Spaces) SkipComments(b []byte, st int) (i int) {
	i = s.Skip(b, st)

	for i+1 < len(b) && b[i] == '/' && b[i+1] == '/' {
		for i < len(b) && b[i] != '\n' {
			i++
		}

		i = s.Skip(b, i)
	}

	return
}
