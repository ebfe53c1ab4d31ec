package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bz888/leanne/internal/api/server/client"
	"github.com/bz888/leanne/internal/chat"
	"github.com/bz888/leanne/internal/logger"
	"github.com/bz888/leanne/internal/speech"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type UI struct {
	app          *tview.Application
	textView     *tview.TextView
	textArea     *tview.TextArea
	statusBar    *tview.TextView
	debugConsole *tview.TextView
	mainFlex     *tview.Flex
	debugShown   bool

	session *chat.Session
	// player is nil when voice output is disabled.
	player *speech.Player
	notice string
	// copyText is the clipboard writer used by /copy.
	copyText func(string) error

	ctx         context.Context
	quit        context.CancelFunc
	localLogger *logger.Logger
}

// New builds the widgets. The debug console can be handed to the logger
// before Run is called.
func New(session *chat.Session, player *speech.Player, dev bool) *UI {
	u := &UI{
		app:        tview.NewApplication(),
		session:    session,
		player:     player,
		debugShown: dev,
		copyText:   writeClipboard,
	}
	u.app.EnablePaste(true)
	u.app.EnableMouse(true)

	u.debugConsole = u.initDebugConsole()
	u.textView = u.initChatViewer()
	u.textArea = u.initChatInput()
	u.statusBar = tview.NewTextView().SetDynamicColors(true)
	return u
}

func (u *UI) initChatViewer() *tview.TextView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	textView.SetTitle("Conversation").SetBorder(true)
	textView.SetScrollable(true)
	return textView
}

func (u *UI) initChatInput() *tview.TextArea {
	textArea := tview.NewTextArea()
	textArea.SetTitle("Message (/help for commands)").SetBorder(true)
	return textArea
}

func (u *UI) initDebugConsole() *tview.TextView {
	console := tview.NewTextView().
		SetChangedFunc(func() {
			u.app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	console.SetTitle("Debugger").SetBorder(true)
	console.ScrollToEnd()
	return console
}

func (u *UI) DebugConsole() *tview.TextView {
	return u.debugConsole
}

// Run blocks until the user quits or ctx is done.
func (u *UI) Run(ctx context.Context) error {
	u.ctx, u.quit = context.WithCancel(ctx)
	defer u.quit()
	u.localLogger = logger.NewLogger("views")

	go func() {
		<-u.ctx.Done()
		u.app.Stop()
	}()

	u.textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			u.app.SetFocus(u.textArea)
		}
		return event
	})

	subFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(u.textView, 0, 1, false).
		AddItem(u.statusBar, 1, 0, false).
		AddItem(u.textArea, 6, 2, true)
	u.mainFlex = tview.NewFlex().
		AddItem(subFlex, 0, 2, true)
	if u.debugShown {
		u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
	}

	if u.player != nil {
		// OnChange may fire on the UI goroutine, so the update is queued
		// from a separate one.
		u.player.OnChange(func(speech.State) {
			go u.app.QueueUpdateDraw(u.refreshStatus)
		})
	}

	u.setInputCapture()
	u.refresh()
	u.refreshStatus()

	return u.app.SetRoot(u.mainFlex, true).SetFocus(u.textArea).Run()
}

func (u *UI) setInputCapture() {
	u.textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyESC:
			if u.textView.GetText(false) != "" {
				u.app.SetFocus(u.textView)
			}
			return nil
		case tcell.KeyEnter:
			content := u.textArea.GetText()
			if strings.TrimSpace(content) == "" {
				return nil
			}
			u.textArea.SetText("", true)
			if cmd, ok := parseCommand(content); ok {
				u.runCommand(cmd)
			} else {
				u.send(content)
			}
			return nil
		}
		return event
	})
}

func (u *UI) runCommand(cmd command) {
	u.localLogger.Info("Command:", cmd.name, cmd.arg)
	switch cmd.name {
	case "help":
		u.setNotice("Commands:\n- " + strings.Join(helpText, "\n- "))
	case "bye", "quit", "exit":
		u.quitApp()
	case "debug":
		u.toggleDebugConsole()
	case "stop":
		u.session.Stop()
		u.setNotice("Stopped.")
	case "new":
		u.session.Reset()
		if u.player != nil {
			u.player.Stop()
		}
		u.setNotice("")
	case "copy":
		u.setNotice(copyLastReply(u.session, u.copyText))
	case "suggest":
		var b strings.Builder
		for i, s := range chat.Suggestions {
			fmt.Fprintf(&b, "\n/%d %s", i+1, s)
		}
		u.setNotice("Suggestions:" + b.String())
	case "choose":
		chips := u.chips()
		if cmd.choice > len(chips) {
			u.setNotice(fmt.Sprintf("There is no option %d.", cmd.choice))
			return
		}
		u.send(chips[cmd.choice-1])
	case "voice", "pause", "volume", "rate":
		u.voiceCommand(cmd)
	default:
		u.setNotice(fmt.Sprintf("Unknown command /%s. Type /help for the list.", cmd.name))
	}
}

func (u *UI) chips() []string {
	if strings.HasPrefix(u.notice, "Suggestions:") {
		return chat.Suggestions
	}
	return chipsFor(u.session.Messages(), u.session.Streaming())
}

func (u *UI) voiceCommand(cmd command) {
	if u.player == nil {
		u.setNotice("Voice output is disabled.")
		return
	}
	switch cmd.name {
	case "voice":
		reply, ok := u.session.LastReply()
		if !ok {
			u.setNotice("Nothing to read yet.")
			return
		}
		u.player.Toggle(reply.Content)
	case "pause":
		u.player.TogglePause()
	case "volume":
		v, ok := parseLevel(cmd.arg, 0, 1)
		if !ok {
			u.setNotice("Usage: /volume <0-1>")
			return
		}
		u.player.SetVolume(v)
	case "rate":
		v, ok := parseLevel(cmd.arg, speech.MinRate, speech.MaxRate)
		if !ok {
			u.setNotice(fmt.Sprintf("Usage: /rate <%.1f-%.0f>", speech.MinRate, speech.MaxRate))
			return
		}
		u.player.SetRate(v)
	}
	u.refreshStatus()
}

func (u *UI) send(text string) {
	u.setNotice("")
	renderer := chat.RendererFunc(func(chat.Message) {
		u.app.QueueUpdateDraw(u.refresh)
	})
	go func() {
		_, err := u.session.Send(u.ctx, text, renderer)
		switch {
		case err == nil, errors.Is(err, client.ErrCanceled):
		case errors.Is(err, chat.ErrTurnInProgress):
			u.app.QueueUpdateDraw(func() { u.setNotice("Please wait for the reply to finish, or /stop it.") })
		default:
			u.localLogger.Error("Turn failed:", err)
			u.app.QueueUpdateDraw(func() { u.setNotice(client.Describe(err)) })
		}
	}()
}

// setNotice shows a transient message under the conversation. Must run on
// the UI goroutine.
func (u *UI) setNotice(notice string) {
	u.notice = notice
	u.refresh()
}

func (u *UI) refresh() {
	text := formatConversation(u.session.Messages(), u.session.Streaming(), time.Now())
	if u.notice != "" {
		text += "\n[blue::]" + tview.Escape(u.notice) + "[-]\n"
	}
	u.textView.SetText(text)
	u.textView.ScrollToEnd()
}

func (u *UI) refreshStatus() {
	if u.player == nil {
		u.statusBar.SetText("[gray]Voice output disabled[-]")
		return
	}
	u.statusBar.SetText("[gray]" + formatVoiceStatus(u.player.State()) + "[-]")
}

func (u *UI) toggleDebugConsole() {
	if u.debugShown {
		u.mainFlex.RemoveItem(u.debugConsole)
		u.setNotice("Debug console disabled")
	} else {
		u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
		u.setNotice("Debug console enabled")
	}
	u.debugShown = !u.debugShown
}

func (u *UI) quitApp() {
	u.localLogger.Info("Shutting down gracefully.")
	u.session.Stop()
	if u.player != nil {
		u.player.Stop()
	}
	u.quit()
}
