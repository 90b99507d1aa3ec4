package providers

import (
	"instametrics/internal/structures"
	"net/http"
)

type RouterProviderInterface interface {
	Get(url string, handler http.Handler)
	Post(url string, handler http.Handler)
	GetRoutes() []structures.Route
}

type RouterProvider struct {
	routes []structures.Route
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.handle(http.MethodGet, url, handler)
}

func (rp *RouterProvider) Post(url string, handler http.Handler) {
	rp.handle(http.MethodPost, url, handler)
}

func (rp *RouterProvider) handle(method, url string, handler http.Handler) {
	rp.routes = append(rp.routes, structures.Route{
		Method:  method,
		Url:     url,
		Handler: methodHandler(method, handler),
	})
}

// GetRoutes returns a copy in registration order.
func (rp *RouterProvider) GetRoutes() []structures.Route {
	return append([]structures.Route(nil), rp.routes...)
}

func NewRouterProvider() RouterProviderInterface {
	return &RouterProvider{}
}

// methodHandler answers 405 for other methods. GET routes also serve HEAD.
func methodHandler(method string, handler http.Handler) http.Handler {
	allow := method
	if method == http.MethodGet {
		allow = http.MethodGet + ", " + http.MethodHead
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method && !(method == http.MethodGet && r.Method == http.MethodHead) {
			w.Header().Set("Allow", allow)
			WriteFailure(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		handler.ServeHTTP(w, r)
	})
}
