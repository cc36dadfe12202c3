// Package stream broadcasts scene frames to gRPC clients.
//
// Frames are pushed by the frame driver through Publish into a buffered
// channel; a broadcast loop fans them out to per-client channels. A client
// that falls behind loses frames rather than stalling the driver.
package stream

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/banshee-data/derbyviz/internal/metrics"
	"github.com/banshee-data/derbyviz/internal/scene"
)

// ErrTooManyClients is returned when MaxClients streams are already open.
var ErrTooManyClients = errors.New("stream client limit reached")

const (
	frameQueueSize  = 100
	clientQueueSize = 10
)

// Config holds configuration for the frame stream server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50051")
	ListenAddr string

	// MaxClients is the maximum number of concurrent streaming clients
	MaxClients int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "localhost:50051",
		MaxClients: 5,
	}
}

// Publisher manages the gRPC server and frame fan-out.
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener

	frameChan chan *scene.Frame
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	frameCount    atomic.Uint64
	clientCount   atomic.Int32
	droppedFrames atomic.Uint64

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type clientStream struct {
	id      string
	request StreamRequest
	frameCh chan *scene.Frame
}

// NewPublisher creates a Publisher. It does nothing until started.
func NewPublisher(cfg Config) *Publisher {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultConfig().MaxClients
	}
	return &Publisher{
		config:    cfg,
		frameChan: make(chan *scene.Frame, frameQueueSize),
		clients:   make(map[string]*clientStream),
		stopCh:    make(chan struct{}),
	}
}

// Start listens on the configured address and serves in the background.
func (p *Publisher) Start() error {
	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return p.Serve(lis)
}

// Serve serves the frame stream on lis in the background.
func (p *Publisher) Serve(lis net.Listener) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("publisher already running")
	}
	p.listener = lis
	p.server = grpc.NewServer()
	RegisterFrameStreamServer(p.server, NewServer(p))

	p.wg.Add(1)
	go p.broadcastLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Printf("[stream] gRPC server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			log.Printf("[stream] gRPC server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully stops the gRPC server and the broadcast loop.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.server != nil {
		p.server.Stop()
	}
	p.wg.Wait()
	log.Printf("[stream] gRPC server stopped (frames=%d dropped=%d)", p.frameCount.Load(), p.droppedFrames.Load())
}

// Publish queues f for every connected client. It never blocks; when the
// queue is full the frame is dropped.
func (p *Publisher) Publish(f *scene.Frame) {
	if f == nil || !p.running.Load() {
		return
	}
	select {
	case p.frameChan <- f:
		p.frameCount.Add(1)
	default:
		p.drop()
	}
}

func (p *Publisher) drop() {
	p.droppedFrames.Add(1)
	metrics.StreamFramesDropped.Inc()
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case f := <-p.frameChan:
			p.broadcast(f)
		}
	}
}

func (p *Publisher) broadcast(f *scene.Frame) {
	p.clientsMu.RLock()
	defer p.clientsMu.RUnlock()
	for _, c := range p.clients {
		select {
		case c.frameCh <- f:
		default:
			p.drop()
		}
	}
}

// addClient registers a new streaming client.
func (p *Publisher) addClient(req StreamRequest) (*clientStream, error) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if len(p.clients) >= p.config.MaxClients {
		return nil, ErrTooManyClients
	}
	c := &clientStream{
		id:      uuid.NewString(),
		request: req,
		frameCh: make(chan *scene.Frame, clientQueueSize),
	}
	p.clients[c.id] = c
	n := p.clientCount.Add(1)
	metrics.StreamClients.Set(float64(n))
	log.Printf("[stream] client connected: %s (total: %d)", c.id, n)
	return c, nil
}

// removeClient unregisters a streaming client.
func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if _, ok := p.clients[id]; !ok {
		return
	}
	delete(p.clients, id)
	n := p.clientCount.Add(-1)
	metrics.StreamClients.Set(float64(n))
	log.Printf("[stream] client disconnected: %s (remaining: %d)", id, n)
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		FrameCount:    p.frameCount.Load(),
		DroppedFrames: p.droppedFrames.Load(),
		ClientCount:   p.clientCount.Load(),
		Running:       p.running.Load(),
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	FrameCount    uint64
	DroppedFrames uint64
	ClientCount   int32
	Running       bool
}
