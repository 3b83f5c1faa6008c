package transport

// Middleware wraps an executor to add functionality such as retries or
// observability.
type Middleware interface {
	// Wrap wraps the given executor with middleware functionality.
	Wrap(next Executor) Executor
}

// MiddlewareFunc is an adapter to allow ordinary functions as middleware.
type MiddlewareFunc func(Executor) Executor

// Wrap implements the Middleware interface.
func (f MiddlewareFunc) Wrap(next Executor) Executor {
	return f(next)
}

// ChainMiddleware chains multiple middleware together. The first middleware
// in the list becomes the outermost wrapper.
func ChainMiddleware(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(exec Executor) Executor {
		for i := len(middleware) - 1; i >= 0; i-- {
			exec = middleware[i].Wrap(exec)
		}
		return exec
	})
}
