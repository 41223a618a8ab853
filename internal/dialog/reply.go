package dialog

// Ask: какую клавиатуру показать вместе с подсказкой.
type Ask int

const (
	AskText Ask = iota
	AskSubject
	AskAttachment
	AskRole
	AskRating
)

// Reply: что ответить пользователю на текущем шаге.
type Reply struct {
	Text string
	Ask  Ask
}
