package protocol

import "fmt"

// Status is the first byte of every server message.
type Status byte

const (
	StatusPrompt Status = iota + 1
	StatusOK
	StatusError
	StatusNotFound
	StatusRegisterPrompt
	StatusWaiting
	StatusAdmitted
	StatusClosing
)

var statusNames = map[Status]string{
	StatusPrompt:         "prompt",
	StatusOK:             "ok",
	StatusError:          "error",
	StatusNotFound:       "not_found",
	StatusRegisterPrompt: "register_prompt",
	StatusWaiting:        "waiting",
	StatusAdmitted:       "admitted",
	StatusClosing:        "closing",
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

// Message is a decoded server message.
type Message struct {
	Status Status
	Text   string
}

// Commands sent by clients once admitted.
const (
	CmdPut      = "put"
	CmdGet      = "get"
	CmdMultiPut = "multiPut"
	CmdMultiGet = "multiGet"
	CmdLogout   = "logout"
)

// Answers to a StatusRegisterPrompt.
const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)
