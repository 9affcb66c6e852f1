// Package jobs defines the background task types and the Asynq client
// and worker that process them.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskProductRecount recomputes completed-purchase counts per product.
	TaskProductRecount = "catalog:recount"
	// TaskOrderReceipt sends an order receipt email.
	TaskOrderReceipt = "mail:order_receipt"
)

// ProductRecountPayload scopes a recount run. An empty ProductIDs slice
// means recount the whole catalog.
type ProductRecountPayload struct {
	ProductIDs []string `json:"product_ids,omitempty"`
}

// NewProductRecountTask constructs an Asynq task for a recount run.
func NewProductRecountTask(payload ProductRecountPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProductRecount, data, asynq.Queue(QueueDefault)), nil
}

// OrderReceiptPayload describes the receipt email for a completed order.
type OrderReceiptPayload struct {
	OrderID string  `json:"order_id"`
	Email   string  `json:"email"`
	Total   float64 `json:"total"`
}

// NewOrderReceiptTask constructs an Asynq task for a receipt email.
func NewOrderReceiptTask(payload OrderReceiptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderReceipt, data, asynq.Queue(QueueDefault)), nil
}

// Client submits jobs to the queue. It satisfies checkout.Enqueuer.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueProductRecount enqueues a recount for the given products.
func (c *Client) EnqueueProductRecount(ctx context.Context, productIDs []string) error {
	task, err := NewProductRecountTask(ProductRecountPayload{ProductIDs: productIDs})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}

// EnqueueOrderReceipt enqueues a receipt email for a completed order.
func (c *Client) EnqueueOrderReceipt(ctx context.Context, orderID, email string, total float64) error {
	task, err := NewOrderReceiptTask(OrderReceiptPayload{OrderID: orderID, Email: email, Total: total})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
