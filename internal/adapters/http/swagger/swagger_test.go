package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given a swagger handler", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()

		convey.Convey("When registering the swagger handler", func() {
			Register(ctx, mux)

			convey.Convey("Then it should handle /openapi.yaml route", func() {
				req := httptest.NewRequest("GET", "/openapi.yaml", http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "/jobs/{type}")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "/templates/{id}/similar")
			})

			convey.Convey("And it should handle /api-docs route", func() {
				req := httptest.NewRequest("GET", "/api-docs", http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "redoc-container")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "/openapi.yaml")
			})

			convey.Convey("And it should reject writes", func() {
				req := httptest.NewRequest("POST", "/openapi.yaml", http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		convey.Convey("When registering with nil mux", func() {
			convey.Convey("Then it should panic", func() {
				convey.So(func() { Register(ctx, nil) }, convey.ShouldPanic)
			})
		})
	})
}
