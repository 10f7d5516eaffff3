package worker

import "github.com/kinship-media/kinship/pkg/logger"

var workerLogger = logger.Get("Worker")

type (
	WorkerWakeupChan chan int
	WorkerStatus     int

	// Task is the unit of work a worker repeatedly executes while awake.
	// The boolean return indicates whether any work was actually claimed;
	// once a task reports no work remaining, the worker goes back to sleep
	// until woken via its wakeup channel.
	Task func(Worker) (bool, error)

	Worker interface {
		Start()
		Status() WorkerStatus
		WakeupChan() WorkerWakeupChan
		Label() string
		Close()
	}

	taskWorker struct {
		label         string
		task          Task
		wakeupChan    WorkerWakeupChan
		currentStatus WorkerStatus
	}
)

const (
	Sleeping WorkerStatus = iota
	Working
	Finished
)

func NewWorker(label string, task Task) *taskWorker {
	return &taskWorker{
		label:         label,
		task:          task,
		wakeupChan:    make(WorkerWakeupChan),
		currentStatus: Sleeping,
	}
}

// Start runs the workers task in a loop until the task reports that
// no work remains, at which point the worker sleeps until it's woken
// up (or closed, which causes Start to return).
func (worker *taskWorker) Start() {
	workerLogger.Emit(logger.NEW, "Starting worker %s\n", worker.label)
	worker.currentStatus = Working

	for {
		didWork, err := worker.task(worker)
		if err != nil {
			workerLogger.Emit(logger.ERROR, "Worker %s reported an error(%T): %v\n", worker.label, err, err.Error())
		}

		if didWork {
			continue
		}

		if !worker.sleep() {
			return
		}
	}
}

func (worker *taskWorker) Status() WorkerStatus {
	return worker.currentStatus
}

func (worker *taskWorker) WakeupChan() WorkerWakeupChan {
	return worker.wakeupChan
}

func (worker *taskWorker) Label() string {
	return worker.label
}

// Close closes the Worker by closing the wakeup channel. Note that this
// does not interrupt a task that is currently executing.
func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

// sleep blocks until the wakeup channel is signalled from another
// goroutine. Returns false if the channel was closed, indicating
// the worker should quit.
func (worker *taskWorker) sleep() (isAlive bool) {
	worker.currentStatus = Sleeping

	if _, isAlive = <-worker.wakeupChan; isAlive {
		worker.currentStatus = Working
	} else {
		workerLogger.Emit(logger.STOP, "Wakeup channel for worker '%s' has been closed - worker is exiting\n", worker.label)
		worker.currentStatus = Finished
	}

	return isAlive
}
