package orchestration

import (
	"context"
	"fmt"
)

type handlerRun func(context.Context) error

// panicSafeNamedHandler turns a panic inside a handler into an error so one
// misbehaving collaborator can not take the connection down.
func panicSafeNamedHandler(name string, run handlerRun) handlerRun {
	return func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("%s handler panicked: %v", name, recovered)
			}
		}()

		return run(ctx)
	}
}
