package livequery

// Broker fans changes out to in-process subscribers.
type Broker interface {
	Subscribe(topic string, filter Filter) *Subscription
	// Publish dispatches a change originating on this instance and hands it to every forwarder.
	Publish(change Change)
	// Deliver dispatches a change received from another instance.
	Deliver(change Change)
	Forward(f Forwarder)
	Origin() string
}
