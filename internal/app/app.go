package app

import (
	"context"
	"log/slog"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/zhubert/parley/internal/backend"
	"github.com/zhubert/parley/internal/config"
	"github.com/zhubert/parley/internal/logger"
	"github.com/zhubert/parley/internal/messenger"
	"github.com/zhubert/parley/internal/ui"
)

// Focus represents which panel is focused
type Focus int

const (
	FocusSidebar Focus = iota
	FocusChat
)

// opTimeout bounds every backend call started from the UI.
const opTimeout = 15 * time.Second

// Backend bundles the collaborators the client runs against.
type Backend struct {
	Auth  backend.Auth
	Docs  backend.DocumentStore
	Blobs backend.BlobStore
}

// Model is the main Bubble Tea model
type Model struct {
	config  *config.Config
	version string
	be      Backend

	gate      *messenger.Gate
	chatList  *messenger.ChatList
	resolver  *messenger.Resolver
	stream    *messenger.Stream
	composer  *messenger.Composer
	mutations *messenger.Mutations

	header  *ui.Header
	footer  *ui.Footer
	sidebar *ui.Sidebar
	chat    *ui.Chat
	modal   *ui.Modal

	width         int
	height        int
	focus         Focus
	kittyKeyboard bool

	// identity changes from the auth collaborator, bridged into the loop
	identityCh   chan *backend.Identity
	stopIdentity func()

	activeChat string            // chat whose messages are shown
	fallback   string            // header name until the chat list has the chat
	resolving  map[string]bool   // direct chats with a resolve in flight
	failed     map[string]bool   // direct chats whose resolve failed
	lastSeen   map[string]string // chat id -> lastMessage key, for notifications
	seeded     bool              // lastSeen holds the first snapshot
	unread     map[string]bool
	unsent     map[string]string // chat id -> text of a failed send, restored on open
	sending    int

	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

// New creates a new app model
func New(cfg *config.Config, be Backend, version string) *Model {
	theme := backend.ParseTheme(cfg.GetTheme())
	ui.SetTheme(theme)

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		config:     cfg,
		version:    version,
		be:         be,
		gate:       messenger.NewGate(be.Docs, theme),
		chatList:   messenger.NewChatList(be.Docs),
		resolver:   messenger.NewResolver(be.Docs),
		stream:     messenger.NewStream(be.Docs),
		composer:   messenger.NewComposer(be.Docs),
		mutations:  messenger.NewMutations(be.Auth, be.Docs, be.Blobs),
		header:     ui.NewHeader(),
		footer:     ui.NewFooter(),
		sidebar:    ui.NewSidebar(),
		chat:       ui.NewChat(),
		modal:      ui.NewModal(),
		focus:      FocusSidebar,
		identityCh: make(chan *backend.Identity, 16),
		resolving:  make(map[string]bool),
		failed:     make(map[string]bool),
		lastSeen:   make(map[string]string),
		unread:     make(map[string]bool),
		unsent:     make(map[string]string),
		ctx:        ctx,
		cancel:     cancel,
		log:        logger.ComponentLogger("App"),
	}
	m.sidebar.SetFocused(true)
	return m
}

// Init subscribes to identity changes and starts listening for them.
func (m *Model) Init() tea.Cmd {
	ch := m.identityCh
	m.stopIdentity = m.be.Auth.OnIdentityChange(func(id *backend.Identity) {
		ch <- id
	})
	return m.listenForIdentity()
}

// opContext returns a context for one backend call.
func (m *Model) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, opTimeout)
}

// selfID returns the signed-in user's id, or "".
func (m *Model) selfID() string {
	if id := m.gate.Identity(); id != nil {
		return id.ID
	}
	return ""
}

// Shutdown cancels every subscription and in-flight call.
func (m *Model) Shutdown() {
	if m.stopIdentity != nil {
		m.stopIdentity()
		m.stopIdentity = nil
	}
	m.gate.CancelAll()
	m.chatList.Cancel()
	m.stream.Deactivate()
	m.cancel()
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.log.Info("quitting")
	m.Shutdown()
	return m, tea.Quit
}

// Gate exposes the session gate, for tests and the CLI.
func (m *Model) Gate() *messenger.Gate { return m.gate }

// ActiveChat returns the id of the open chat, or "".
func (m *Model) ActiveChat() string { return m.activeChat }
