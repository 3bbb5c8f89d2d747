package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgdiegogallo/mensajeria/internal/config"
	"github.com/dgdiegogallo/mensajeria/internal/handler"
	"github.com/dgdiegogallo/mensajeria/internal/model/channel"
	"github.com/dgdiegogallo/mensajeria/internal/notify"
	"github.com/dgdiegogallo/mensajeria/internal/queue"
	"github.com/dgdiegogallo/mensajeria/internal/service/ai"
	"github.com/dgdiegogallo/mensajeria/internal/service/botqueue"
	"github.com/dgdiegogallo/mensajeria/internal/service/conversation"
	"github.com/dgdiegogallo/mensajeria/internal/service/poll"
	"github.com/dgdiegogallo/mensajeria/internal/service/schedule"
	"github.com/dgdiegogallo/mensajeria/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	channelStore := newChannelStore(cfg.Engine)

	sink := notify.NewSink(filepath.Join(cfg.Engine.DataDir, "notifications.json"))
	conversations := conversation.NewService(channelStore, sink)
	poller := poll.New(conversations, cfg.Engine.PollInterval)

	// Bot replies need the completion model; without credentials the service
	// still runs, it just rejects bot-augmented schedules at delivery time.
	var responder ai.Responder
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize completion model: %v", err)
			log.Println("continuing without bot replies")
		} else {
			responder = aiService
			log.Println("completion model initialized successfully")
		}
	} else {
		log.Println("model credentials not configured, bot replies disabled")
	}

	botQueue := botqueue.NewService(
		queue.NewDurable[botqueue.PendingReply](filepath.Join(cfg.Engine.DataDir, "botqueue.json")),
		channelStore,
		responderOrUnavailable(responder),
	).WithTick(cfg.Engine.QueueTick)

	scheduleQueue := schedule.NewService(
		queue.NewDurable[schedule.ScheduledSend](filepath.Join(cfg.Engine.DataDir, "schedule.json")),
		channelStore,
		botQueue,
		poller,
	).WithTick(cfg.Engine.QueueTick)

	go scheduleQueue.Run(ctx)
	go botQueue.Run(ctx)

	router := handler.NewRouter(channelStore, conversations, scheduleQueue, poller, sink)

	startServer(ctx, cfg.Server, router)
}

// newChannelStore selects the REST-backed store when a backend URL is
// configured and falls back to the in-process store otherwise.
func newChannelStore(engine config.EngineConfig) store.ChannelStore {
	if engine.BackendURL != "" {
		log.Printf("using message backend at %s", engine.BackendURL)
		return store.NewClient(engine.BackendURL, engine.BackendTimeout)
	}

	log.Println("BACKEND_URL not configured, using in-memory channel store")
	return store.NewMemory(channel.Record{
		ID:      "general",
		Name:    "General",
		Bots:    map[string]channel.Bot{},
		Content: json.RawMessage(`[]`),
	})
}

// unavailableResponder fails every completion call. It stands in when no
// model credentials were configured so a queued bot reply drains with a log
// line instead of blocking the queue forever.
type unavailableResponder struct{}

func (unavailableResponder) Reply(context.Context, string) (string, error) {
	return "", errors.New("completion model not configured")
}

func responderOrUnavailable(responder ai.Responder) ai.Responder {
	if responder != nil {
		return responder
	}
	return unavailableResponder{}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("mensajeria backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
