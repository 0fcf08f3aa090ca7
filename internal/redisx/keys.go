package redisx

import "time"

const (
	// Processed-message ledger: processed:{kind}:{order_id} -> "1".
	// Written by the stock consumer before applying, so at-least-once
	// redelivery becomes a no-op.
	KeyProcessed = "processed:%s:%d"

	// Customer existence replica: replica:customer:{id} -> "1".
	// Populated on successful peer checks, consulted when the customer
	// service is unreachable.
	KeyCustomerReplica = "replica:customer:%d"

	// Durable-queue transport list: queue:{destination}.
	KeyQueue = "queue:%s"
)

var (
	TTLProcessed       = 48 * time.Hour
	TTLCustomerReplica = 24 * time.Hour
)
