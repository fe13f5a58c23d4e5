package instrument

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/a3drift/internal/config"
	"github.com/fyrsmithlabs/a3drift/internal/logging"
)

// Prologix opens sessions through a Prologix GPIB-ETHERNET adapter.
//
// The adapter listens on TCP port 1234. Lines starting with "++" configure the
// adapter itself; anything else is forwarded to the addressed GPIB device.
type Prologix struct {
	address     string
	gpibAddress int
	dialTimeout time.Duration
	readTimeout time.Duration
	interval    time.Duration
	logger      *logging.Logger
}

// NewPrologix returns a Dialer for the configured adapter and GPIB address.
func NewPrologix(cfg config.InstrumentConfig, logger *logging.Logger) *Prologix {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Prologix{
		address:     cfg.Address,
		gpibAddress: cfg.GPIBAddress,
		dialTimeout: cfg.DialTimeout,
		readTimeout: cfg.ReadTimeout,
		interval:    cfg.CommandInterval,
		logger:      logger.Named("prologix"),
	}
}

// adapterSetup puts the adapter in controller mode with manual reads, EOI
// asserted on the last byte and LF appended to every command.
var adapterSetup = []string{
	"++mode 1",
	"++auto 0",
	"++eoi 1",
	"++eos 2",
}

// Open dials the adapter, configures it and addresses the instrument.
func (p *Prologix) Open(ctx context.Context) (Session, error) {
	dialer := net.Dialer{Timeout: p.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return nil, &ConnectionError{Address: p.address, Err: err}
	}

	limit := rate.Inf
	if p.interval > 0 {
		limit = rate.Every(p.interval)
	}

	s := &prologixSession{
		conn:        conn,
		reader:      bufio.NewReader(conn),
		limiter:     rate.NewLimiter(limit, 1),
		readTimeout: p.readTimeout,
		logger:      p.logger,
	}

	setup := append(append([]string{}, adapterSetup...), fmt.Sprintf("++addr %d", p.gpibAddress))
	for _, line := range setup {
		if err := s.writeLine(ctx, line); err != nil {
			_ = conn.Close()
			return nil, &ConnectionError{Address: p.address, Err: err}
		}
	}

	return s, nil
}

type prologixSession struct {
	mu          sync.Mutex
	conn        net.Conn
	reader      *bufio.Reader
	limiter     *rate.Limiter
	readTimeout time.Duration
	logger      *logging.Logger
	broken      error
	closeOnce   sync.Once
	closeErr    error
}

// Send implements Session.
func (s *prologixSession) Send(ctx context.Context, command string, reply bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken != nil {
		return "", &CommandError{Command: command, Err: fmt.Errorf("%w: %v", ErrSessionBroken, s.broken)}
	}
	if err := s.writeLine(ctx, escape(command)); err != nil {
		return "", &CommandError{Command: command, Err: err}
	}
	if !reply {
		return "", nil
	}

	if err := s.writeLine(ctx, "++read eoi"); err != nil {
		return "", &CommandError{Command: command, Err: err}
	}

	if err := s.conn.SetReadDeadline(s.deadline(ctx)); err != nil {
		return "", &CommandError{Command: command, Err: err}
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		// A late reply would be read as the answer to the next query.
		s.broken = fmt.Errorf("reply to %q lost: %w", command, err)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", &CommandError{Command: command, Err: fmt.Errorf("no reply within %s: %w", s.readTimeout, err)}
		}
		return "", &CommandError{Command: command, Err: err}
	}

	resp := strings.TrimSpace(line)
	s.logger.Wire(ctx, logging.WireRx, resp, zap.String("command", command))
	if resp == "" {
		return "", &CommandError{Command: command, Err: errors.New("empty reply")}
	}
	return resp, nil
}

// Close returns the instrument to front panel control and closes the socket.
func (s *prologixSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_, _ = s.conn.Write([]byte("++loc\n"))
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *prologixSession) writeLine(ctx context.Context, line string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.conn.SetWriteDeadline(s.deadline(ctx)); err != nil {
		return err
	}
	s.logger.Wire(ctx, logging.WireTx, line)
	_, err := s.conn.Write([]byte(line + "\n"))
	return err
}

// deadline is the earlier of the context deadline and now+readTimeout.
func (s *prologixSession) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(s.readTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// escape prefixes the bytes the adapter treats specially (CR, LF, ESC and
// '+') with ESC so they reach the instrument verbatim.
func escape(command string) string {
	if !strings.ContainsAny(command, "\r\n\x1b+") {
		return command
	}
	var b strings.Builder
	for i := 0; i < len(command); i++ {
		switch c := command[i]; c {
		case '\r', '\n', 0x1b, '+':
			b.WriteByte(0x1b)
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
