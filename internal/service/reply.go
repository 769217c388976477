package service

// Reply is a transport-agnostic response instruction: plain text, optionally
// with selectable choices. The transport decides how to render the choices.
type Reply struct {
	Text    string
	Choices []Choice
}

type Choice struct {
	Label string
	Data  string
}

func single(text string) []Reply {
	return []Reply{{Text: text}}
}
