package worker

import (
	"context"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/you/eventfoundry/services/notification-service/internal/events"
	"github.com/you/eventfoundry/services/notification-service/internal/notifier"
)

type Config struct {
	RabbitURL   string
	Exchanges   []string // bidding + settlement
	Queue       string
	Bindings    []string
	Prefetch    int
	UseDLX      bool
	DLXName     string
	DLXQueue    string
	ServiceName string
}

type Consumer struct {
	cfg      Config
	notifier notifier.Notifier

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg Config, n notifier.Notifier) *Consumer {
	return &Consumer{cfg: cfg, notifier: n}
}

func (c *Consumer) Connect() error {
	conn, err := amqp.Dial(c.cfg.RabbitURL)
	if err != nil {
		return fmt.Errorf("rabbit dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel failed: %w", err)
	}

	// declare queue (with DLX if requested)
	args := amqp.Table{}
	if c.cfg.UseDLX {
		args["x-dead-letter-exchange"] = c.cfg.DLXName
	}

	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue failed: %w", err)
	}

	// bind to every source exchange
	for _, ex := range c.cfg.Exchanges {
		if err := ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare exchange %s failed: %w", ex, err)
		}
		for _, key := range c.cfg.Bindings {
			if err := ch.QueueBind(q.Name, key, ex, false, nil); err != nil {
				_ = ch.Close()
				_ = conn.Close()
				return fmt.Errorf("bind queue to exchange=%s key=%s failed: %w", ex, key, err)
			}
		}
	}

	if c.cfg.UseDLX {
		if err := ch.ExchangeDeclare(c.cfg.DLXName, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare dlx failed: %w", err)
		}
		if _, err := ch.QueueDeclare(c.cfg.DLXQueue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare dlq failed: %w", err)
		}
		if err := ch.QueueBind(c.cfg.DLXQueue, "#", c.cfg.DLXName, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("bind dlq failed: %w", err)
		}
	}

	if c.cfg.Prefetch <= 0 {
		c.cfg.Prefetch = 8
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos failed: %w", err)
	}

	c.conn = conn
	c.ch = ch
	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.ServiceName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := c.handleDelivery(d); err != nil {
				log.Printf("[notify] handle error key=%s err=%v -> Nack&requeue", d.RoutingKey, err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleDelivery(d amqp.Delivery) error {
	switch d.RoutingKey {
	case events.RKBiddingClosed:
		ev, err := events.MustUnmarshal[events.BiddingClosed](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Bidding Closed",
			fmt.Sprintf("Event %s closed with %d shortlisted and %d rejected bids.", ev.EventID, ev.Shortlisted, ev.Rejected))

	case events.RKBidShortlisted:
		ev, err := events.MustUnmarshal[events.BidShortlisted](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Bid Shortlisted",
			fmt.Sprintf("Vendor %s made the shortlist for event %s at %s (bid %s).", ev.VendorID, ev.EventID, notifier.Rupees(ev.Amount), ev.BidID))

	case events.RKBidRejected:
		ev, err := events.MustUnmarshal[events.BidRejected](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Bid Not Selected",
			fmt.Sprintf("Vendor %s was not shortlisted for event %s (bid %s).", ev.VendorID, ev.EventID, ev.BidID))

	case events.RKWinnerSelected:
		ev, err := events.MustUnmarshal[events.WinnerSelected](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Winner Selected",
			fmt.Sprintf("Vendor %s won event %s with bid %s.", ev.VendorID, ev.EventID, ev.BidID))

	case events.RKPaymentCaptured:
		ev, err := events.MustUnmarshal[events.PaymentCaptured](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Payment Captured",
			fmt.Sprintf("Client paid %s for contract %s; vendor %s is owed %s.",
				notifier.Rupees(ev.Amount), ev.ContractID, ev.VendorID, notifier.Rupees(ev.VendorPayable)))

	case events.RKPayoutProcessed:
		ev, err := events.MustUnmarshal[events.PayoutProcessed](d.Body)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Vendor %s received %s (payout %s).", ev.VendorID, notifier.Rupees(ev.Amount), ev.PayoutID)
		if ev.UTR != "" {
			msg = fmt.Sprintf("%s UTR: %s", msg, ev.UTR)
		}
		return c.notifier.Notify("Payout Processed", msg)

	default:
		log.Printf("[notify] skip unknown key=%s", d.RoutingKey)
	}
	return nil
}
