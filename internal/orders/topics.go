package orders

const (
	TopicOrderSettled  = "order.settled"
	TopicOrderRejected = "order.rejected"
)

// Partition key = order_id so every event for one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
