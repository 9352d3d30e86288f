package client_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/betti/internal/adapters/codec"
	"github.com/okian/betti/internal/adapters/http/api"
	service "github.com/okian/betti/internal/app"
	"github.com/okian/betti/internal/client"
	"github.com/okian/betti/internal/domain/persistence"
	"github.com/okian/betti/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClient(t *testing.T) {
	_ = logger.Init()

	Convey("Given a client for a running service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c := client.New(srv.URL+"/", client.WithTimeout(5*time.Second))

		d := persistence.Diagram{0: {{Birth: 0, Death: 2}, {Birth: 1, Death: math.Inf(1)}}}
		req, err := client.NewRequest(d)
		So(err, ShouldBeNil)
		start, stop := 0.0, 4.0
		req.Start, req.Stop, req.Points, req.Dimensions = &start, &stop, 5, []int{0}

		Convey("Then the health check should pass", func() {
			So(c.Health(ctx), ShouldBeNil)
		})

		Convey("When computing synchronously", func() {
			res, err := c.Compute(ctx, req)

			Convey("Then the curve should come back", func() {
				So(err, ShouldBeNil)
				So(res.Curves[0], ShouldResemble, []int{1, 2, 1, 1, 1})
			})
		})

		Convey("When submitting and waiting", func() {
			ack, err := c.Submit(ctx, req)
			So(err, ShouldBeNil)
			So(ack.Duplicate, ShouldBeFalse)

			res, err := c.Wait(ctx, ack.ID, 5*time.Millisecond)

			Convey("Then the job should finish", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, "done")
				So(res.Curves[0], ShouldResemble, []int{1, 2, 1, 1, 1})
			})

			Convey("Then the table should be fetchable", func() {
				table, err := c.Table(ctx, ack.ID, codec.FormatTSV)
				So(err, ShouldBeNil)
				So(strings.HasPrefix(string(table), "scale\tbetti_0\n"), ShouldBeTrue)
			})

			Convey("Then resubmitting should report the same job", func() {
				again, err := c.Submit(ctx, req)
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.ID, ShouldEqual, ack.ID)
			})
		})

		Convey("When fetching an unknown job", func() {
			_, err := c.Result(ctx, "missing")

			Convey("Then the error should match ErrNotFound", func() {
				So(errors.Is(err, client.ErrNotFound), ShouldBeTrue)
				var apiErr *client.APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Code, ShouldEqual, "not_found")
			})
		})

		Convey("When the request is invalid", func() {
			req.Points = 1
			_, err := c.Compute(ctx, req)

			Convey("Then a 400 should surface", func() {
				var apiErr *client.APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
