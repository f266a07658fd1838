package tasks

// TaskSchedulerInterface is what the API needs from the scheduler.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Health() map[string]any
}
