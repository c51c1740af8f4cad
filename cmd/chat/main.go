package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"paperchat/internal/bootstrap"
	"paperchat/internal/config"
	"paperchat/internal/dto"
	"paperchat/internal/pkg/logger"
	"paperchat/internal/repository/contract"
	"paperchat/internal/repository/implementation"
	"paperchat/internal/service"
	"paperchat/pkg/chat/exchange"
	"paperchat/pkg/chat/history"
	"paperchat/pkg/chat/session"
	"paperchat/pkg/remote"

	"github.com/fatih/color"
)

const helpText = `Commands:
  /open <paperId> <title>   open (or resume) the conversation about a paper
  /sessions                 list known sessions, most recent first
  /sync                     mirror the server's session list into this device
  /delete <paperId>         delete the paper's session
  /close                    close the current conversation
  /logout                   forget every session cached on this device
  /help                     show this help
  /quit                     exit
Anything else is sent as a question in the current conversation.`

// consoleListener prints session list changes under the answer.
type consoleListener struct{}

func (consoleListener) OnNewSession(_ context.Context, sessionId, preview, title string) {
	color.HiBlack("  + new session %s for %q", sessionId, title)
}

func (consoleListener) OnSessionUpdated(_ context.Context, sessionId, preview string) {
	color.HiBlack("  ~ session %s updated", sessionId)
}

type repl struct {
	service      service.IChatService
	viewer       service.Viewer
	conversation *dto.ConversationResponse
}

func main() {
	cfg := config.Load()

	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	defer sysLogger.Sync()

	store, err := bootstrap.NewBlobStore(cfg.Index, bootstrap.NewRedisClient(cfg.App.RedisURL))
	if err != nil {
		log.Fatalf("Unable to open session index: %v", err)
	}
	defer store.Close()

	authority := remote.NewClient(cfg.Remote.BaseURL)
	newIndex := func(scope string) contract.SessionIndexRepository {
		return implementation.NewSessionIndexRepository(store, scope, sysLogger)
	}
	chatService := service.NewChatService(
		authority,
		newIndex,
		session.NewResolver(authority, cfg.Remote.VerifyTimeout, sysLogger),
		history.NewLoader(authority, sysLogger),
		exchange.NewCoordinator(authority, sysLogger, exchange.WithListener(consoleListener{})),
		sysLogger,
	)

	deviceId := cfg.Device.ID
	if deviceId == "" {
		deviceId, _ = os.Hostname()
	}
	if deviceId == "" {
		deviceId = "local"
	}

	r := &repl{
		service: chatService,
		viewer:  service.Viewer{Scope: deviceId, Token: cfg.Device.Token},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	color.Cyan("paperchat (%s), /help for commands", cfg.Remote.BaseURL)
	r.run(ctx, bufio.NewScanner(os.Stdin))
}

func (r *repl) prompt() {
	if r.conversation == nil {
		fmt.Print("> ")
		return
	}
	fmt.Printf("[%s] > ", r.conversation.PaperId)
}

func (r *repl) run(ctx context.Context, in *bufio.Scanner) {
	r.prompt()
	for in.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "/quit" || line == "/exit" {
			return
		}
		if line != "" {
			r.handle(ctx, line)
		}
		r.prompt()
	}
}

func (r *repl) handle(ctx context.Context, line string) {
	if !strings.HasPrefix(line, "/") {
		r.ask(ctx, line)
		return
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/help":
		fmt.Println(helpText)
	case "/open":
		paperId, title, _ := strings.Cut(rest, " ")
		if paperId == "" {
			color.Red("usage: /open <paperId> <title>")
			return
		}
		if title = strings.TrimSpace(title); title == "" {
			title = paperId
		}
		r.open(ctx, paperId, title)
	case "/sessions":
		r.listSessions(ctx)
	case "/sync":
		res, err := r.service.SyncFromRemote(ctx, r.viewer)
		if err != nil {
			color.Red("sync failed: %v", err)
			return
		}
		color.Green("mirrored %d sessions", res.Mirrored)
		r.listSessions(ctx)
	case "/delete":
		if rest == "" {
			color.Red("usage: /delete <paperId>")
			return
		}
		if err := r.service.DeleteSession(ctx, r.viewer, rest); err != nil {
			color.Red("delete failed: %v", err)
			return
		}
		if r.conversation != nil && r.conversation.PaperId == rest {
			r.conversation = nil
		}
		color.Green("deleted session for %s", rest)
	case "/close":
		if r.conversation != nil {
			_ = r.service.CloseConversation(r.viewer, r.conversation.Id)
			r.conversation = nil
		}
	case "/logout":
		r.service.Forget(ctx, r.viewer)
		r.conversation = nil
		color.Green("local sessions cleared")
	default:
		color.Red("unknown command %s, /help for commands", cmd)
	}
}

func (r *repl) open(ctx context.Context, paperId, title string) {
	res, err := r.service.OpenConversation(ctx, r.viewer, &dto.OpenConversationRequest{
		PaperId: paperId,
		Title:   title,
	})
	if err != nil {
		color.Red("open failed: %v", err)
		return
	}
	r.conversation = res

	switch {
	case res.Reused:
		color.Yellow("resumed open conversation")
	case res.SessionId == nil:
		color.Yellow("no previous conversation, your first question starts one")
	default:
		color.Yellow("continuing session %s (%s)", *res.SessionId, res.Source)
	}

	for _, msg := range res.History {
		if msg.IsUser {
			color.Cyan("you: %s", msg.Text)
		} else {
			fmt.Printf("ai:  %s\n", msg.Text)
		}
	}
}

func (r *repl) ask(ctx context.Context, text string) {
	if r.conversation == nil {
		color.Red("open a paper first: /open <paperId> <title>")
		return
	}

	res, err := r.service.SendMessage(ctx, r.viewer, r.conversation.Id, text)
	if err != nil {
		var exchangeErr *exchange.ExchangeError
		switch {
		case errors.As(err, &exchangeErr):
			color.Red("%s", exchangeErr.Message)
		case errors.Is(err, exchange.ErrEmptyMessage):
		default:
			color.Red("%v", err)
		}
		return
	}

	fmt.Printf("ai:  %s\n", res.Answer)
}

func (r *repl) listSessions(ctx context.Context) {
	items := r.service.ListSessions(ctx, r.viewer)
	if len(items) == 0 {
		color.Yellow("no sessions yet")
		return
	}
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = item.PaperId
		}
		fmt.Printf("%s  %-24s %s\n", item.LastUsedAt.Local().Format("2006-01-02 15:04"), item.PaperId, title)
		if item.Preview != "" {
			color.HiBlack("    %s", item.Preview)
		}
	}
}
