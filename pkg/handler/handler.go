package handler

import "net/http"

// HandlerFunc handles a decoded request of type R and returns a Response.
//
//	h := handler.HandlerFunc[CreateCustomerRequest](
//		func(ctx handler.Context, req CreateCustomerRequest) handler.Response {
//			id, err := resolver.Resolve(ctx, user)
//			if err != nil {
//				return handler.Error(err)
//			}
//			return handler.JSON(map[string]string{"customerId": id})
//		},
//	)
type HandlerFunc[R any] func(ctx Context, req R) Response

// Response renders itself to an http.ResponseWriter.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind parses an HTTP request into v.
type Bind func(r *http.Request, v any) error

// ErrorHandler writes the response for a failed request.
type ErrorHandler func(ctx Context, err error)

// WrapOption configures Wrap.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	binders      []Bind
	errorHandler ErrorHandler
}

// WithBinders sets request binders applied in order.
func WithBinders(binders ...Bind) WrapOption {
	return func(c *wrapConfig) {
		c.binders = append(c.binders, binders...)
	}
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h ErrorHandler) WrapOption {
	return func(c *wrapConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

func defaultErrorHandler(ctx Context, err error) {
	info := classify(err)
	_ = writeJSON(ctx.ResponseWriter(), info.StatusCode, info.body())
}

// Wrap converts a typed HandlerFunc to http.HandlerFunc. Binding failures,
// Error responses and render failures all go through the error handler.
func Wrap[R any](h HandlerFunc[R], opts ...WrapOption) http.HandlerFunc {
	cfg := &wrapConfig{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := NewContext(w, r)

		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				cfg.errorHandler(ctx, err)
				return
			}
		}

		resp := h(ctx, req)
		if resp == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}

		if errResp, ok := resp.(*errorResponse); ok {
			cfg.errorHandler(ctx, errResp.err)
			return
		}

		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}
