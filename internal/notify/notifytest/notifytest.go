// Package notifytest provides mailer doubles for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/tyemirov/elearning/internal/notify"
)

// RecordingMailer keeps every message it is asked to send. When Err is set,
// Send records the message and then fails with Err.
type RecordingMailer struct {
	mutex    sync.Mutex
	messages []notify.Message
	Err      error
}

func (mailer *RecordingMailer) Send(ctx context.Context, message notify.Message) error {
	mailer.mutex.Lock()
	defer mailer.mutex.Unlock()
	mailer.messages = append(mailer.messages, message)
	return mailer.Err
}

// Messages returns a copy of the recorded messages.
func (mailer *RecordingMailer) Messages() []notify.Message {
	mailer.mutex.Lock()
	defer mailer.mutex.Unlock()
	return append([]notify.Message(nil), mailer.messages...)
}

// Subjects lists recorded subjects in send order.
func (mailer *RecordingMailer) Subjects() []string {
	messages := mailer.Messages()
	subjects := make([]string, 0, len(messages))
	for _, message := range messages {
		subjects = append(subjects, message.Subject)
	}
	return subjects
}
