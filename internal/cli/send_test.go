package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReplySender struct {
	messages     []any
	destinations []string
	err          error
}

func (f *fakeReplySender) SendMessageWithReply(_ context.Context, message any, destination string) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	f.messages = append(f.messages, message)
	f.destinations = append(f.destinations, destination)

	return "sqs-1", nil
}

func Test_SendMessage_ForwardsTheRawBodyWithReply(t *testing.T) {
	// arrange
	sender := &fakeReplySender{}
	out := &bytes.Buffer{}
	body := []byte(`{"operation":"PING","bookId":"b-1"}`)

	// act
	err := sendMessage(context.Background(), sender, body, "https://sqs.local/lending", out)

	// assert
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Equal(t, jsoniter.RawMessage(body), sender.messages[0])
	assert.Equal(t, []string{"https://sqs.local/lending"}, sender.destinations)
	assert.Equal(t, "sent sqs-1\n", out.String())
}

func Test_SendMessage_RejectsABodyThatIsNotJSON(t *testing.T) {
	// arrange
	sender := &fakeReplySender{}

	// act
	err := sendMessage(context.Background(), sender, []byte(`{"operation":`), "https://sqs.local/lending", &bytes.Buffer{})

	// assert
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Empty(t, sender.messages)
}

func Test_SendMessage_PropagatesGatewayFailures(t *testing.T) {
	// arrange
	gatewayErr := errors.New("throttled")
	out := &bytes.Buffer{}

	// act
	err := sendMessage(context.Background(), &fakeReplySender{err: gatewayErr}, []byte(`{}`), "https://sqs.local/lending", out)

	// assert
	assert.ErrorIs(t, err, gatewayErr)
	assert.Empty(t, out.String())
}

func Test_Send_RequiresTheQueue(t *testing.T) {
	// arrange
	_, execute := givenRootCommand(nil, "send", "--message", `{}`)

	// act
	err := execute()

	// assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
