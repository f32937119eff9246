package serial

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
)

const (
	fieldCount     = 6
	fieldDelimiter = ";"
)

// DecodeError reports a serial line that could not be turned into a
// message. The gateway logs and drops such lines.
type DecodeError struct {
	Line   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %q: %s", e.Line, e.Reason)
}

var numericFieldNames = [...]string{"node id", "child id", "class", "ack", "sub-type"}

// Decode parses one newline-terminated gateway line into a message.
// Only the trailing line break is trimmed; the payload is the opaque
// remainder after the fifth delimiter and may itself contain
// delimiters.
func Decode(line string) (entities.Message, error) {
	trimmed := strings.TrimRight(line, "\r\n")
	fields := strings.SplitN(trimmed, fieldDelimiter, fieldCount)
	if len(fields) != fieldCount {
		return entities.Message{}, &DecodeError{Line: trimmed, Reason: fmt.Sprintf("expected %d fields", fieldCount)}
	}

	var numbers [fieldCount - 1]int
	for i := range numbers {
		value, err := strconv.Atoi(fields[i])
		if err != nil {
			return entities.Message{}, &DecodeError{Line: trimmed, Reason: fmt.Sprintf("%s is not an integer", numericFieldNames[i])}
		}
		numbers[i] = value
	}

	if numbers[3] != 0 && numbers[3] != 1 {
		return entities.Message{}, &DecodeError{Line: trimmed, Reason: "ack flag must be 0 or 1"}
	}

	message, err := entities.NewMessage(numbers[0], numbers[1], entities.MessageClass(numbers[2]), numbers[3] == 1, numbers[4], fields[5])
	if err != nil {
		return entities.Message{}, &DecodeError{Line: trimmed, Reason: err.Error()}
	}
	return message, nil
}

// Encode renders a message as one newline-terminated gateway line.
// Decoding an encoded message yields the original message back.
func Encode(message entities.Message) string {
	ack := "0"
	if message.AckRequested {
		ack = "1"
	}
	fields := []string{
		strconv.Itoa(int(message.NodeID)),
		strconv.Itoa(int(message.ChildID)),
		strconv.Itoa(int(message.Class)),
		ack,
		strconv.Itoa(message.SubType),
		message.Payload,
	}
	return strings.Join(fields, fieldDelimiter) + "\n"
}
