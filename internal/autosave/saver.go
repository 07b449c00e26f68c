package autosave

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pagecart/internal/logging"
	"github.com/pagecart/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultWindow 是默认的防抖静默期。
const DefaultWindow = time.Second

const writeTimeout = 5 * time.Second

// Draft 是一次草稿写入的内容。
type Draft struct {
	SessionID string
	PageSlug  string
	SectionID string
	Snapshot  json.RawMessage
}

// Store 是草稿持久化协作者。同一 session 在任意时刻最多只有一条未转换的草稿。
type Store interface {
	FindOpen(ctx context.Context, sessionID string) (uint, bool, error)
	Create(ctx context.Context, draft Draft) (uint, error)
	Update(ctx context.Context, id uint, draft Draft) error
	MarkConverted(ctx context.Context, id uint, orderID uint) error
}

// Saver 把一个 session 的采集状态防抖写入草稿。
// 写入失败只记录日志，不影响下单流程。
type Saver struct {
	store     Store
	sessionID string
	debouncer *Debouncer
	logger    zerolog.Logger

	// writeMu 串行化写入，保证同一 session 只创建一行。
	writeMu sync.Mutex

	mu        sync.Mutex
	latest    *Draft
	draftID   uint
	converted bool
	closed    bool
	gen       uint64
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSaver 创建 Saver。window 为 0 时使用 DefaultWindow。
func NewSaver(store Store, sessionID string, window time.Duration, clock Clock) *Saver {
	if window <= 0 {
		window = DefaultWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Saver{
		store:     store,
		sessionID: sessionID,
		debouncer: NewDebouncer(window, clock),
		logger:    logging.For("autosave").With().Str("session_id", sessionID).Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetLogger 替换日志输出，主要面向测试场景。
func (s *Saver) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// Observe 记录最新状态并重新计时；静默期内的多次调用合并为一次写入。
func (s *Saver) Observe(pageSlug, sectionID string, snapshot any) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn().Err(err).Msg("encode draft snapshot")
		return
	}

	s.mu.Lock()
	if s.closed || s.converted {
		s.mu.Unlock()
		return
	}
	s.latest = &Draft{SessionID: s.sessionID, PageSlug: pageSlug, SectionID: sectionID, Snapshot: raw}
	s.mu.Unlock()

	s.debouncer.Schedule(s.flush)
}

// DraftID 返回已写入的草稿 ID，尚未写入时为 0。
func (s *Saver) DraftID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftID
}

// Convert 取消待写入任务并把草稿标记为已转换，此后的 Observe 全部忽略。
func (s *Saver) Convert(ctx context.Context, orderID uint) error {
	s.debouncer.Stop()
	s.mu.Lock()
	if s.converted {
		s.mu.Unlock()
		return nil
	}
	s.converted = true
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id := s.DraftID()
	if id == 0 {
		found, ok, err := s.store.FindOpen(ctx, s.sessionID)
		if err != nil {
			metrics.RecordDraftWrite("convert", false)
			s.logger.Warn().Err(err).Msg("look up draft before conversion")
			return fmt.Errorf("find open draft: %w", err)
		}
		if !ok {
			return nil
		}
		id = found
	}

	if err := s.store.MarkConverted(ctx, id, orderID); err != nil {
		metrics.RecordDraftWrite("convert", false)
		s.logger.Warn().Err(err).Uint("draft_id", id).Msg("mark draft converted")
		return fmt.Errorf("mark draft converted: %w", err)
	}
	metrics.RecordDraftWrite("convert", true)
	return nil
}

// Close 取消待写入任务与进行中的写入；之后返回的写入结果会被丢弃。
func (s *Saver) Close() error {
	s.debouncer.Stop()
	s.mu.Lock()
	s.closed = true
	s.gen++
	s.mu.Unlock()
	s.cancel()
	return nil
}

func (s *Saver) flush() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed || s.converted || s.latest == nil {
		s.mu.Unlock()
		return
	}
	draft := *s.latest
	id := s.draftID
	gen := s.gen
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()

	op, id, err := s.write(ctx, id, draft)

	s.mu.Lock()
	stale := s.gen != gen
	if err == nil && !stale {
		s.draftID = id
	}
	s.mu.Unlock()

	if stale {
		s.logger.Debug().Str("op", op).Msg("discard draft write after teardown")
		return
	}
	metrics.RecordDraftWrite(op, err == nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("op", op).Msg("draft autosave failed")
		return
	}
	s.logger.Debug().Str("op", op).Uint("draft_id", id).Msg("draft saved")
}

// write 先用记住的 ID 更新；没有时查找未转换的草稿，仍然没有才新建。
func (s *Saver) write(ctx context.Context, id uint, draft Draft) (string, uint, error) {
	if id == 0 {
		found, ok, err := s.store.FindOpen(ctx, draft.SessionID)
		if err != nil {
			return "lookup", 0, err
		}
		if ok {
			id = found
		}
	}
	if id != 0 {
		return "update", id, s.store.Update(ctx, id, draft)
	}
	created, err := s.store.Create(ctx, draft)
	return "create", created, err
}
