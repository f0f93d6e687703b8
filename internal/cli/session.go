package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/studyroom/internal/dependencies/clock"
	"github.com/mcoot/studyroom/internal/protocol"
)

const sessionHelp = `Commands:
  start [seconds] [work|break]  start a new phase (defaults: 30m work, 5m break)
  pause | resume | reset        control the room timer
  tick <seconds>                report the remaining time (driver only)
  status <idle|studying|breaking>
  list                          list rooms
  create <name> | join <code>   switch rooms
  leave                         leave the current room
  quit                          disconnect`

var errQuit = errors.New("quit")

// command is a parsed line of session input
type command struct {
	event   string
	payload any
}

// parseCommand turns one line of user input into a protocol message.
// It returns errQuit for quit and exit, and a nil command for blank lines.
func parseCommand(line string) (*command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return nil, errQuit
	case "start":
		return parseStart(args)
	case "pause":
		return &command{protocol.EventTimerPause, struct{}{}}, nil
	case "resume":
		return &command{protocol.EventTimerResume, struct{}{}}, nil
	case "reset":
		return &command{protocol.EventTimerReset, struct{}{}}, nil
	case "tick":
		if len(args) != 1 {
			return nil, errors.New("usage: tick <seconds>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid seconds %q", args[0])
		}
		return &command{protocol.EventTimerTick, protocol.TimerTick{TimeRemaining: &n}}, nil
	case "status":
		if len(args) != 1 {
			return nil, errors.New("usage: status <idle|studying|breaking>")
		}
		return &command{protocol.EventStatusUpdate, protocol.StatusUpdate{Status: strings.ToLower(args[0])}}, nil
	case "list":
		return &command{protocol.EventRoomList, struct{}{}}, nil
	case "leave":
		return &command{protocol.EventRoomLeave, struct{}{}}, nil
	case "create":
		return &command{protocol.EventRoomCreate, protocol.RoomCreate{RoomName: strings.Join(args, " ")}}, nil
	case "join":
		if len(args) != 1 {
			return nil, errors.New("usage: join <code>")
		}
		return &command{protocol.EventRoomJoin, protocol.RoomJoin{InviteCode: args[0]}}, nil
	}
	return nil, fmt.Errorf("unknown command %q (try help)", fields[0])
}

func parseStart(args []string) (*command, error) {
	var start protocol.TimerStart
	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "work":
			work := true
			start.IsWorkSession = &work
		case "break":
			work := false
			start.IsWorkSession = &work
		default:
			n, err := strconv.Atoi(arg)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid duration %q", arg)
			}
			start.Duration = &n
		}
	}
	return &command{protocol.EventTimerStart, start}, nil
}

// SessionOptions configures an interactive session
type SessionOptions struct {
	Name   string
	UserID string
	// Initial is sent once the server has acknowledged the identity
	Initial *command
	// Drive runs the local countdown whenever this client is the timer driver
	Drive        bool
	Clock        clock.Clock
	TickInterval time.Duration
	// OnReady receives the identifier the server confirmed
	OnReady func(userID string) error
}

// Session is an interactive connection to a study room server
type Session struct {
	conn   *websocket.Conn
	out    *Output
	opts   SessionOptions
	driver *driver
	userID string
}

// NewSession wraps an open socket
func NewSession(conn *websocket.Conn, out *Output, opts SessionOptions) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &Session{
		conn:   conn,
		out:    out,
		opts:   opts,
		driver: newDriver(opts.Clock, opts.TickInterval),
	}
}

// Run processes server events and input lines until quit, end of input,
// context cancellation or the server closing the connection.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	done := make(chan struct{})
	defer close(done)
	defer s.driver.stop()
	defer func() { _ = s.conn.Close() }()

	frames := make(chan protocol.Envelope)
	readErr := make(chan error, 1)
	go s.readLoop(frames, readErr, done)

	lines := make(chan string)
	go readLines(in, lines, done)

	if err := s.send(protocol.EventUserInit, protocol.UserInit{UserID: s.opts.UserID, Name: s.opts.Name}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.close()
			return nil

		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.out.PrintMessage("Connection closed by server")
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)

		case env := <-frames:
			if err := s.handleEvent(env); err != nil {
				return err
			}

		case line, ok := <-lines:
			if !ok {
				s.close()
				return nil
			}
			if err := s.handleLine(line); err != nil {
				if errors.Is(err, errQuit) {
					s.close()
					return nil
				}
				return err
			}

		case <-s.driver.C():
			remaining, _ := s.driver.tick()
			if err := s.send(protocol.EventTimerTick, protocol.TimerTick{TimeRemaining: &remaining}); err != nil {
				return err
			}
		}
	}
}

func (s *Session) readLoop(frames chan<- protocol.Envelope, readErr chan<- error, done <-chan struct{}) {
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		env, err := protocol.Decode(frame)
		if err != nil {
			continue
		}
		select {
		case frames <- env:
		case <-done:
			return
		}
	}
}

func readLines(in io.Reader, lines chan<- string, done <-chan struct{}) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-done:
			return
		}
	}
}

func (s *Session) handleLine(line string) error {
	if strings.EqualFold(strings.TrimSpace(line), "help") {
		s.out.PrintMessage(sessionHelp)
		return nil
	}

	cmd, err := parseCommand(line)
	if err != nil {
		if errors.Is(err, errQuit) {
			return err
		}
		s.out.PrintError(err)
		return nil
	}
	if cmd == nil {
		return nil
	}
	return s.send(cmd.event, cmd.payload)
}

func (s *Session) handleEvent(env protocol.Envelope) error {
	s.out.PrintEvent(env)

	switch env.Event {
	case protocol.EventUserReady:
		ready, err := protocol.DecodeData[protocol.UserReady](env)
		if err != nil {
			return err
		}
		s.userID = ready.UserID
		if s.opts.OnReady != nil {
			if err := s.opts.OnReady(ready.UserID); err != nil {
				s.out.PrintError(fmt.Errorf("save user id: %w", err))
			}
		}
		if s.opts.Initial != nil {
			initial := s.opts.Initial
			s.opts.Initial = nil
			return s.send(initial.event, initial.payload)
		}

	case protocol.EventRoomJoined:
		if d, err := protocol.DecodeData[protocol.RoomJoined](env); err == nil {
			s.reconcile(d.Room.TimerState, true)
		}
	case protocol.EventRoomCreated, protocol.EventRoomLeft:
		s.driver.stop()

	case protocol.EventTimerStarted:
		if d, err := protocol.DecodeData[protocol.TimerStarted](env); err == nil {
			s.reconcile(d.TimerState, true)
		}
	case protocol.EventTimerResumed:
		if d, err := protocol.DecodeData[protocol.TimerResumed](env); err == nil {
			s.reconcile(d.TimerState, true)
		}
	case protocol.EventTimerPaused, protocol.EventTimerFinished, protocol.EventTimerReset:
		s.driver.stop()
	case protocol.EventTimerUpdate:
		if d, err := protocol.DecodeData[protocol.TimerChanged](env); err == nil {
			s.reconcile(d.TimerState, false)
		}
	}
	return nil
}

func (s *Session) reconcile(t protocol.TimerState, authoritative bool) {
	if !s.opts.Drive {
		return
	}
	s.driver.reconcile(s.userID, t, authoritative)
}

func (s *Session) send(event string, payload any) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

func (s *Session) close() {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
