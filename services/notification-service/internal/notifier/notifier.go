package notifier

import (
	"fmt"
	"log"
)

// Notifier abstracts the delivery channel (email / Slack / SMS later).
type Notifier interface {
	Notify(subject, message string) error
}

// ConsoleNotifier logs to stdout; enough until a real channel lands.
type ConsoleNotifier struct{}

func NewConsole() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (c *ConsoleNotifier) Notify(subject, message string) error {
	log.Printf("[notify] %s :: %s\n", subject, message)
	return nil
}

// Rupees renders a paise amount as a human rupee string.
func Rupees(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}
