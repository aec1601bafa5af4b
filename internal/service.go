package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"

	"github.com/pgillich/httpqueue/internal/buildinfo"
	"github.com/pgillich/httpqueue/internal/logger"
	"github.com/pgillich/httpqueue/internal/middleware"
	"github.com/pgillich/httpqueue/internal/model"
	"github.com/pgillich/httpqueue/internal/queue"
	"github.com/pgillich/httpqueue/internal/tracing"
	"github.com/pgillich/httpqueue/internal/transport"
)

const (
	// OptionID is the option name, filled by --withID
	OptionID = "Id"
)

var ErrInvalidOption = errors.NewPlain("invalid option, expected name=value")

// QueueConfig is the common config of the queue commands
type QueueConfig struct {
	Endpoint    string
	Path        string
	Transport   string
	Timeout     time.Duration
	NatsURL     string
	NatsSubject string
	Instance    string
	OtlpURL     string
	JaegerURL   string
	Command     string
	Metrics     bool

	// put only
	ContentType string
	Option      []string
	WithID      bool

	In     io.Reader `mapstructure:"-"`
	Out    io.Writer `mapstructure:"-"`
	ErrOut io.Writer `mapstructure:"-"`
}

type queueService struct {
	config   QueueConfig
	log      logr.Logger
	ctx      context.Context //nolint:containedctx // service lifetime
	op       string
	shutdown []func()
}

func newQueueService(ctx context.Context, cfg interface{}, log logr.Logger, op string) *queueService {
	config, is := cfg.(*QueueConfig)
	if !is {
		log.Error(logger.ErrInvalidConfig, "config type")
		panic(logger.ErrInvalidConfig)
	}
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.In == nil {
		config.In = os.Stdin
	}
	if config.ErrOut == nil {
		config.ErrOut = os.Stderr
	}

	return &queueService{
		config: *config,
		log:    log.WithValues("op", op),
		ctx:    ctx,
		op:     op,
	}
}

func NewPollService(ctx context.Context, cfg interface{}, log logr.Logger) model.Service {
	return &PollService{newQueueService(ctx, cfg, log, queue.OpPoll)}
}

func NewPutService(ctx context.Context, cfg interface{}, log logr.Logger) model.Service {
	return &PutService{newQueueService(ctx, cfg, log, queue.OpPut)}
}

func NewStatsService(ctx context.Context, cfg interface{}, log logr.Logger) model.Service {
	return &StatsService{newQueueService(ctx, cfg, log, queue.OpStats)}
}

// client builds the queue client on the configured transport and tracer.
// Resources are released by close.
func (s *queueService) client() (*queue.Client, error) {
	exporter, err := tracing.OtlpProvider(s.config.OtlpURL)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "unable to create OTLP exporter", "url", s.config.OtlpURL)
	}
	if exporter == nil {
		if exporter, err = tracing.JaegerProvider(s.config.JaegerURL); err != nil {
			return nil, errors.WrapIfWithDetails(err, "unable to create Jaeger exporter", "url", s.config.JaegerURL)
		}
	}
	tp := tracing.InitTracer(exporter, sdktrace.AlwaysSample(), buildinfo.AppName, s.config.Instance, s.config.Command, s.log)
	otel.SetTracerProvider(tp)
	s.shutdown = append(s.shutdown, func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			s.log.Error(err, "unable to shutdown tracer provider")
		}
	})

	queueTransport, closeTransport, err := transport.New(transport.Config{
		Kind:        s.config.Transport,
		Timeout:     s.config.Timeout,
		NatsURL:     s.config.NatsURL,
		NatsSubject: s.config.NatsSubject,
	}, s.log)
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped
	}
	s.shutdown = append(s.shutdown, closeTransport)
	s.ctx = tracing.ClientContext(s.ctx, s.config.Instance, s.config.Command, s.log)

	client := queue.NewClient(s.config.Endpoint, queueTransport,
		queue.WithLogger(s.log),
		queue.WithTracer(tp.Tracer("github.com/pgillich/httpqueue/internal")),
		queue.WithTransportName(strings.ToLower(s.config.Transport)),
	)
	s.log.V(1).Info("Queue client", "endpoint", client.Endpoint(), "transport", s.config.Transport)

	return client, nil
}

func (s *queueService) close() {
	for i := len(s.shutdown) - 1; i >= 0; i-- {
		s.shutdown[i]()
	}
	if s.config.Metrics {
		if err := middleware.WriteMetrics(s.config.ErrOut, prometheus.DefaultGatherer); err != nil {
			s.log.Error(err, "unable to dump metrics")
		}
	}
}

func (s *queueService) print(value interface{}) error {
	encoder := yaml.NewEncoder(s.config.Out)
	if err := encoder.Encode(value); err != nil {
		return errors.WrapIf(err, "unable to print result")
	}

	return errors.WrapIf(encoder.Close(), "unable to print result")
}

type PollService struct {
	*queueService
}

type messageView struct {
	Valid       bool              `yaml:"valid"`
	ContentType string            `yaml:"contentType"`
	Options     map[string]string `yaml:"options,omitempty"`
	Size        int               `yaml:"size"`
	Payload     string            `yaml:"payload"`
}

// Run polls one message from the path of args[0] (or --path) and prints it.
func (s *PollService) Run(args []string) error {
	s.log.Info("Poll start", "args", args)
	defer s.log.Info("Poll exit")
	client, err := s.client()
	defer s.close()
	if err != nil {
		return err
	}

	path := s.config.Path
	if len(args) > 0 {
		path = args[0]
	}
	m, err := client.Poll(s.ctx, path)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}

	return s.print(messageView{
		Valid:       m.Valid,
		ContentType: m.ContentType,
		Options:     m.Options,
		Size:        m.Size(),
		Payload:     string(m.Payload),
	})
}

type PutService struct {
	*queueService
}

type putView struct {
	Status int    `yaml:"status"`
	Body   string `yaml:"body,omitempty"`
	ID     string `yaml:"id,omitempty"`
}

// Run submits args joined by space (stdin, if no args) as a message.
func (s *PutService) Run(args []string) error {
	s.log.Info("Put start", "args", args)
	defer s.log.Info("Put exit")

	m, err := s.message(args)
	if err != nil {
		return err
	}
	client, err := s.client()
	defer s.close()
	if err != nil {
		return err
	}

	resp, err := client.Put(s.ctx, m, s.config.Path)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	id, _ := m.Option(OptionID)

	return s.print(putView{
		Status: resp.StatusCode(),
		Body:   string(resp.Body()),
		ID:     id,
	})
}

func (s *PutService) message(args []string) (*queue.Message, error) {
	var payload []byte
	if len(args) > 0 {
		payload = []byte(strings.Join(args, " "))
	} else {
		var err error
		if payload, err = io.ReadAll(s.config.In); err != nil {
			return nil, errors.WrapIf(err, "unable to read payload")
		}
	}

	opts := make([]queue.MessageOption, 0, len(s.config.Option)+2)
	if s.config.ContentType != "" {
		opts = append(opts, queue.WithContentType(s.config.ContentType))
	}
	for _, option := range s.config.Option {
		name, value, found := strings.Cut(option, "=")
		if !found || name == "" {
			return nil, errors.WithDetails(ErrInvalidOption, "option", option)
		}
		if _, is := queue.OptionName(queue.HeaderOptionPrefix + name); !is {
			return nil, errors.WithDetails(ErrInvalidOption, "option", option)
		}
		opts = append(opts, queue.WithOption(name, value))
	}
	if s.config.WithID {
		opts = append(opts, queue.WithOption(OptionID, uuid.NewString()))
	}

	return queue.NewMessage(payload, opts...), nil
}

type StatsService struct {
	*queueService
}

// Run prints the queue size and bytes of the endpoint.
func (s *StatsService) Run(args []string) error {
	s.log.Info("Stats start", "args", args)
	defer s.log.Info("Stats exit")
	client, err := s.client()
	defer s.close()
	if err != nil {
		return err
	}

	stats, err := client.Stats(s.ctx)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}

	return s.print(stats)
}

// VersionService prints the build info
type VersionService struct {
	out io.Writer
}

func NewVersionService(ctx context.Context, cfg interface{}, log logr.Logger) model.Service {
	config, is := cfg.(*QueueConfig)
	if !is || config.Out == nil {
		return &VersionService{out: os.Stdout}
	}

	return &VersionService{out: config.Out}
}

func (s *VersionService) Run(args []string) error {
	_, err := fmt.Fprintln(s.out, buildinfo.String())

	return errors.WrapIf(err, "unable to print version")
}
