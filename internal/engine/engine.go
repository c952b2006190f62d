package engine

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/MuchTitan/logtail/internal"
	"github.com/MuchTitan/logtail/internal/filter"
	"github.com/MuchTitan/logtail/internal/input"
	"github.com/MuchTitan/logtail/internal/output"
	"github.com/MuchTitan/logtail/internal/parser"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	pipelineSize  = 1000
	flushSize     = 100
	flushInterval = time.Second
)

type Engine struct {
	inputs   []input.Plugin
	parsers  []parser.Plugin
	filters  []filter.Plugin
	outputs  []output.Plugin
	pipeline chan internal.Event
	errs     chan error
	hostname string
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewEngine() *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	hostname, _ := os.Hostname()
	return &Engine{
		pipeline: make(chan internal.Event, pipelineSize),
		errs:     make(chan error, 1),
		hostname: hostname,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterInput adds an input plugin to the engine
func (e *Engine) RegisterInput(input input.Plugin) {
	e.inputs = append(e.inputs, input)
}

// RegisterParser adds a parser plugin to the engine
func (e *Engine) RegisterParser(parser parser.Plugin) {
	e.parsers = append(e.parsers, parser)
}

// RegisterFilter adds a filter plugin to the engine
func (e *Engine) RegisterFilter(filter filter.Plugin) {
	e.filters = append(e.filters, filter)
}

// RegisterOutput adds an output plugin to the engine
func (e *Engine) RegisterOutput(output output.Plugin) {
	e.outputs = append(e.outputs, output)
}

func (e *Engine) Inputs() []input.Plugin   { return e.inputs }
func (e *Engine) Parsers() []parser.Plugin { return e.parsers }
func (e *Engine) Filters() []filter.Plugin { return e.filters }
func (e *Engine) Outputs() []output.Plugin { return e.outputs }

// Errors delivers the first fatal input error, after which the agent
// should be stopped.
func (e *Engine) Errors() <-chan error {
	return e.errs
}

// inputSink stamps records from one input and queues them on the pipeline.
type inputSink struct {
	engine *Engine
	input  input.Plugin
}

func (s inputSink) Submit(record internal.Record) {
	event := internal.Event{
		ID:     uuid.NewString(),
		Record: record,
		Metadata: internal.Metadata{
			Host:        s.engine.hostname,
			Tag:         s.input.Tag(),
			InputSource: s.input.Name(),
		},
	}

	select {
	case s.engine.pipeline <- event:
	case <-s.engine.ctx.Done():
	}
}

// SinkFor returns the sink an input submits its records to.
func (e *Engine) SinkFor(in input.Plugin) internal.Sink {
	return inputSink{engine: e, input: in}
}

// Start begins the processing pipeline
func (e *Engine) Start() error {
	for _, in := range e.inputs {
		e.wg.Add(1)
		go func(in input.Plugin) {
			defer e.wg.Done()
			if err := in.Start(e.ctx, e.SinkFor(in)); err != nil && !errors.Is(err, context.Canceled) {
				logrus.WithField("input", in.Name()).WithError(err).Error("input stopped with a fatal error")
				select {
				case e.errs <- err:
				default:
				}
			}
		}(in)
	}

	e.wg.Add(1)
	go e.processRecords()

	return nil
}

// processRecords handles the main processing pipeline
func (e *Engine) processRecords() {
	defer e.wg.Done()

	buffer := make([]internal.Event, 0, 2*flushSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			// drain what the inputs already handed over
			for {
				select {
				case event := <-e.pipeline:
					if processed := e.process(&event); processed != nil {
						buffer = append(buffer, *processed)
					}
				default:
					if len(buffer) > 0 {
						e.flush(buffer)
					}
					return
				}
			}

		case event := <-e.pipeline:
			if processed := e.process(&event); processed != nil {
				buffer = append(buffer, *processed)
			}

			if len(buffer) >= flushSize {
				e.flush(buffer)
				buffer = buffer[:0]
			}

		case <-ticker.C:
			if len(buffer) > 0 {
				e.flush(buffer)
				buffer = buffer[:0]
			}
		}
	}
}

// process parses the event with the first matching parser that accepts it,
// then runs the filters.
func (e *Engine) process(event *internal.Event) *internal.Event {
	for _, p := range e.parsers {
		if p.MatchTag(event.Metadata.Tag) && p.Process(event) {
			break
		}
	}
	return e.applyFilters(event)
}

// applyFilters runs the event through every filter matching its tag; nil
// means the event was dropped.
func (e *Engine) applyFilters(event *internal.Event) *internal.Event {
	processed := event
	for _, f := range e.filters {
		if !f.MatchTag(event.Metadata.Tag) {
			continue
		}
		next, err := f.Process(processed)
		if err != nil {
			logrus.WithField("filter", f.Name()).WithError(err).Error("could not filter event")
			continue
		}
		if next == nil {
			return nil
		}
		processed = next
	}
	return processed
}

// flush writes records to all output plugins
func (e *Engine) flush(records []internal.Event) {
	for _, out := range e.outputs {
		if err := out.Write(records); err != nil {
			logrus.WithField("output", out.Name()).WithError(err).Error("could not write to output")
		}
	}
}

// Stop gracefully shuts down the engine
func (e *Engine) Stop() error {
	e.cancel()
	e.wg.Wait()

	var errs []error
	for _, in := range e.inputs {
		errs = append(errs, in.Exit())
	}
	for _, p := range e.parsers {
		errs = append(errs, p.Exit())
	}
	for _, f := range e.filters {
		errs = append(errs, f.Exit())
	}
	for _, out := range e.outputs {
		if err := out.Flush(); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, out.Exit())
	}

	return errors.Join(errs...)
}
