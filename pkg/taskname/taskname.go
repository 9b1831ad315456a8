package taskname

const (
	// Event tasks
	EventPublish = "event:publish"
)
