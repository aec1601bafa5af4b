package inner

import (
	"context"
	"strings"
	"testing"

	"emperror.dev/errors"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace"

	"github.com/pgillich/httpqueue/internal/logger"
	"github.com/pgillich/httpqueue/internal/middleware"
)

type MiddlewaresTestSuite struct {
	suite.Suite
	ctx context.Context //nolint:containedctx // test
}

func TestMiddlewaresTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewaresTestSuite))
}

func (s *MiddlewaresTestSuite) SetupTest() {
	s.ctx, _ = logger.FromContext(context.Background())
}

func tagger(tag string, calls *[]string) InternalMiddleware {
	return func(next InternalMiddlewareFn) InternalMiddlewareFn {
		return func(ctx context.Context) (interface{}, error) {
			*calls = append(*calls, tag)

			return next(ctx)
		}
	}
}

func (s *MiddlewaresTestSuite) TestChainOrder() {
	calls := []string{}
	chain := InternalMiddlewareChain(tagger("first", &calls), tagger("second", &calls), tagger("third", &calls))

	retVal, err := chain(func(ctx context.Context) (interface{}, error) {
		calls = append(calls, "fn")

		return 42, nil
	})(s.ctx)

	s.NoError(err)
	s.Equal(42, retVal)
	s.Equal([]string{"first", "second", "third", "fn"}, calls)
}

func (s *MiddlewaresTestSuite) TestTryCatch() {
	retVal, err := TryCatch()(func(ctx context.Context) (interface{}, error) {
		panic("boom")
	})(s.ctx)

	s.Nil(retVal)
	s.ErrorIs(err, ErrPanic)
	s.Contains(err.Error(), "boom")
}

func (s *MiddlewaresTestSuite) TestLoggerAndSpan() {
	errTest := errors.NewPlain("test error")
	chain := InternalMiddlewareChain(
		Logger(map[string]string{"op": "test"}, 0, 0),
		Span(trace.NewNoopTracerProvider().Tracer("test"), "test span"),
	)

	retVal, err := chain(func(ctx context.Context) (interface{}, error) {
		return "value", errTest
	})(logr.NewContext(context.Background(), logger.GetLogger(s.T().Name())))

	s.Equal("value", retVal)
	s.ErrorIs(err, errTest)
}

func (s *MiddlewaresTestSuite) TestMetrics() {
	name := "inner_test_calls"
	mw := Metrics(s.ctx, name, "Test calls", map[string]string{"case": "metrics"}, middleware.FirstErr)

	for i := 0; i < 3; i++ {
		_, err := mw(func(ctx context.Context) (interface{}, error) {
			return nil, nil
		})(s.ctx)
		s.NoError(err)
	}

	families, err := prometheus.DefaultGatherer.Gather()
	s.Require().NoError(err)
	found := map[string]float64{}
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), name) {
			continue
		}
		for _, metric := range family.GetMetric() {
			found[family.GetName()] += metric.GetCounter().GetValue()
		}
	}
	s.Equal(float64(3), found[name+"_total"], found)
	s.Len(found, 2, found)
}
