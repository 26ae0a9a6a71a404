package kafka

// Topics для Kafka
const (
	// TopicCartEvents — фид жизненного цикла корзины (аналитика, нотификации).
	TopicCartEvents = "cart.events"
)
