// Package pipeline 批量计算文书金额，按输入顺序提交结果并定期写检查点
package pipeline

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/penalty-amount/internal/amount"
	"github.com/fyerfyer/penalty-amount/internal/metrics"
	"github.com/fyerfyer/penalty-amount/internal/models"
	"github.com/fyerfyer/penalty-amount/internal/repository"
	"github.com/fyerfyer/penalty-amount/pkg/storage"
)

// Config 批处理配置
type Config struct {
	BatchSize       int    // 每批文书数量，整批共用一次抽取调用
	Concurrency     int    // 并发处理的批次数
	CheckpointEvery int    // 每提交多少行写一次检查点
	Resume          bool   // 是否从检查点恢复
	CheckpointName  string // 检查点对象名
	OutputName      string // 结果表对象名
}

// DefaultConfig 返回默认批处理配置
func DefaultConfig() Config {
	return Config{
		BatchSize:       14,
		Concurrency:     1,
		CheckpointEvery: 100,
		CheckpointName:  "checkpoints/penalty_amount.csv",
		OutputName:      "output/penalty_amount.csv",
	}
}

// Summary 一次运行的汇总
type Summary struct {
	RunID            string        // 运行ID
	Total            int           // 输入文书数量
	Processed        int           // 本次计算的文书数量
	Skipped          int           // 从检查点恢复而跳过的文书数量
	Failed           int           // 至少一个类别计算失败的文书数量
	FineAmount       float64       // 罚款合计
	ConfiscateAmount float64       // 没收合计
	Amount           float64       // 罚没合计
	Output           string        // 结果表对象名，中断时为空
	Duration         time.Duration // 耗时
}

func (s *Summary) round() {
	s.FineAmount = amount.Round(s.FineAmount)
	s.ConfiscateAmount = amount.Round(s.ConfiscateAmount)
	s.Amount = amount.Round(s.Amount)
}

// Orchestrator 批处理编排器
// 批次由多个 worker 并发计算，结果由调用 Run 的协程按输入顺序提交，
// 检查点、结果表与数据库写入都只发生在这一个协程中
type Orchestrator struct {
	aggregator *amount.Aggregator
	store      storage.Storage
	checkpoint *Checkpoint
	config     Config
	amounts    repository.AmountRepository
	metrics    *metrics.Collector
	logger     *logrus.Logger
}

// Option 编排器配置选项
type Option func(*Orchestrator)

// WithAmountRepository 将结果同时写入数据库
func WithAmountRepository(repo repository.AmountRepository) Option {
	return func(o *Orchestrator) {
		o.amounts = repo
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.metrics = c
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New 创建编排器
func New(agg *amount.Aggregator, store storage.Storage, cfg Config, opts ...Option) *Orchestrator {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.CheckpointName == "" {
		cfg.CheckpointName = def.CheckpointName
	}
	if cfg.OutputName == "" {
		cfg.OutputName = def.OutputName
	}

	o := &Orchestrator{
		aggregator: agg,
		store:      store,
		checkpoint: NewCheckpoint(store, cfg.CheckpointName),
		config:     cfg,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type job struct {
	idx  int
	docs []amount.Document
}

type batchResult struct {
	idx      int
	records  []amount.Record
	elapsed  time.Duration
	canceled bool
}

// run 单次运行的提交状态，只在提交协程中访问
type run struct {
	id      string
	rows    []Row
	summary *Summary
}

// Run 处理来源中的全部文书
// 上下文取消后不再派发新批次，已提交的行写入检查点后返回上下文错误
func (o *Orchestrator) Run(ctx context.Context, src Source) (*Summary, error) {
	start := time.Now()
	docs, err := src.Documents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read documents")
	}

	r := &run{
		id:      uuid.New().String(),
		summary: &Summary{Total: len(docs)},
	}
	r.summary.RunID = r.id
	log := o.logger.WithField("run_id", r.id)

	pending := docs
	if o.config.Resume {
		if pending, err = o.resume(ctx, r, docs); err != nil {
			return nil, err
		}
	}
	if o.metrics != nil {
		o.metrics.AddDocuments(metrics.StatusSkipped, r.summary.Skipped)
	}

	log.WithFields(logrus.Fields{
		"total":   len(docs),
		"pending": len(pending),
		"skipped": r.summary.Skipped,
	}).Info("Starting amount computation")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches := split(pending, o.config.BatchSize, o.config.CheckpointEvery, len(r.rows))
	jobs := make(chan job, o.config.Concurrency*2)
	results := make(chan batchResult, o.config.Concurrency*2)

	var wg sync.WaitGroup
	wg.Add(o.config.Concurrency)
	for i := 0; i < o.config.Concurrency; i++ {
		go func() {
			defer wg.Done()
			o.worker(runCtx, jobs, results)
		}()
	}

	go func() {
		defer close(jobs)
		for i, b := range batches {
			select {
			case <-runCtx.Done():
				return
			case jobs <- job{idx: i, docs: b}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// 提交门闩：乱序到达的批次暂存，按批序连续提交
	next := 0
	buffered := make(map[int][]amount.Record)
	var commitErr error
	for res := range results {
		if res.canceled || commitErr != nil {
			continue
		}
		if o.metrics != nil {
			o.metrics.ObserveBatch(res.elapsed)
		}
		buffered[res.idx] = res.records
		for {
			records, ok := buffered[next]
			if !ok {
				break
			}
			delete(buffered, next)
			next++
			if err := o.commit(runCtx, r, records); err != nil {
				commitErr = err
				cancel()
				break
			}
		}
	}

	r.summary.Duration = time.Since(start)
	if commitErr != nil {
		return r.summary, commitErr
	}

	if err := ctx.Err(); err != nil {
		r.summary.round()
		if serr := o.checkpoint.Save(context.WithoutCancel(ctx), r.rows); serr != nil {
			log.WithError(serr).Error("Failed to save checkpoint after interruption")
			return r.summary, serr
		}
		log.WithFields(logrus.Fields{
			"committed":  len(r.rows),
			"checkpoint": o.checkpoint.Name(),
		}).Warn("Run interrupted, committed rows checkpointed")
		return r.summary, err
	}

	if err := o.finish(ctx, r); err != nil {
		return r.summary, err
	}
	r.summary.Duration = time.Since(start)
	r.summary.round()

	log.WithFields(logrus.Fields{
		"processed":         r.summary.Processed,
		"skipped":           r.summary.Skipped,
		"failed":            r.summary.Failed,
		"fine_amount":       r.summary.FineAmount,
		"confiscate_amount": r.summary.ConfiscateAmount,
		"amount":            r.summary.Amount,
		"output":            r.summary.Output,
		"duration":          r.summary.Duration.String(),
	}).Info("Amount computation finished")
	return r.summary, nil
}

// resume 载入检查点，返回仍需计算的文书
func (o *Orchestrator) resume(ctx context.Context, r *run, docs []amount.Document) ([]amount.Document, error) {
	rows, err := o.checkpoint.Load(ctx)
	if err != nil {
		return nil, err
	}

	// 检查点按输入顺序提交，必须是输入的前缀；同一ID可以出现多次
	if len(rows) > len(docs) {
		return nil, errors.Wrapf(ErrCheckpointMismatch, "%s has %d rows, input has %d documents",
			o.checkpoint.Name(), len(rows), len(docs))
	}
	for k, row := range rows {
		if row.ID != docs[k].ID {
			return nil, errors.Wrapf(ErrCheckpointMismatch, "%s row %d is %q, input document is %q",
				o.checkpoint.Name(), k, row.ID, docs[k].ID)
		}
		r.summary.FineAmount += row.FineAmount
		r.summary.ConfiscateAmount += row.ConfiscateAmount
		r.summary.Amount += row.Amount
	}
	r.rows = rows
	r.summary.Skipped = len(rows)

	o.logger.WithFields(logrus.Fields{
		"checkpoint": o.checkpoint.Name(),
		"rows":       len(rows),
	}).Info("Resuming from checkpoint")
	return docs[len(rows):], nil
}

func (o *Orchestrator) worker(ctx context.Context, jobs <-chan job, results chan<- batchResult) {
	for j := range jobs {
		start := time.Now()
		records := o.aggregator.ComputeBatch(ctx, j.docs)
		// 取消期间算出的结果可能是被中断的抽取，丢弃后由恢复运行重新计算
		if ctx.Err() != nil {
			results <- batchResult{idx: j.idx, canceled: true}
			continue
		}
		results <- batchResult{idx: j.idx, records: records, elapsed: time.Since(start)}
	}
}

// commit 按顺序提交一个批次，跨过检查点间隔时保存检查点
// 已算完的批次在取消后仍完整提交
func (o *Orchestrator) commit(ctx context.Context, r *run, records []amount.Record) error {
	ctx = context.WithoutCancel(ctx)
	before := len(r.rows)
	for _, rec := range records {
		row := RowFromRecord(rec)
		r.rows = append(r.rows, row)
		r.summary.Processed++
		r.summary.FineAmount += row.FineAmount
		r.summary.ConfiscateAmount += row.ConfiscateAmount
		r.summary.Amount += row.Amount
		if rec.Failed() {
			r.summary.Failed++
		}
		o.observe(rec)
	}

	if o.amounts != nil {
		o.persist(ctx, r.id, records)
	}

	every := o.config.CheckpointEvery
	if every > 0 && len(r.rows)/every > before/every {
		if err := o.checkpoint.Save(ctx, r.rows); err != nil {
			return err
		}
		o.logger.WithFields(logrus.Fields{
			"run_id":    r.id,
			"committed": len(r.rows),
		}).Info("Checkpoint saved")
	}
	return nil
}

func (o *Orchestrator) observe(rec amount.Record) {
	if o.metrics == nil {
		return
	}
	status := metrics.StatusProcessed
	if rec.Failed() {
		status = metrics.StatusFailed
	}
	o.metrics.AddDocuments(status, 1)
	for _, flag := range amount.Flags {
		res := rec.Result(flag)
		o.metrics.ObserveResult(string(flag), string(res.Outcome), res.Value)
	}
}

// persist 写入数据库，失败只记录日志，结果表仍以存储中的文件为准
func (o *Orchestrator) persist(ctx context.Context, runID string, records []amount.Record) {
	rows := make([]*models.PenaltyAmount, 0, len(records))
	for _, rec := range records {
		row, err := amountModel(runID, rec)
		if err != nil {
			o.logger.WithError(err).WithField("id", rec.ID).Warn("Failed to encode diagnostics")
		}
		rows = append(rows, row)
	}
	if err := o.amounts.SaveBatch(ctx, rows); err != nil {
		o.logger.WithFields(logrus.Fields{
			"run_id": runID,
			"rows":   len(rows),
			"error":  err,
		}).Error("Failed to persist amounts")
	}
}

func amountModel(runID string, rec amount.Record) (*models.PenaltyAmount, error) {
	row := RowFromRecord(rec)
	m := &models.PenaltyAmount{
		ID:               rec.ID,
		RunID:            runID,
		FineAmount:       row.FineAmount,
		ConfiscateAmount: row.ConfiscateAmount,
		Amount:           row.Amount,
		Status:           models.AmountStatusOK,
		ProcessedAt:      time.Now(),
	}
	if rec.Failed() {
		m.Status = models.AmountStatusFailed
	}

	diags := make(map[string]models.Diagnostic, len(amount.Flags))
	for _, flag := range amount.Flags {
		res := rec.Result(flag)
		d := models.Diagnostic{Outcome: string(res.Outcome)}
		if res.Err != nil {
			d.Error = res.Err.Error()
		}
		diags[string(flag)] = d
	}
	return m, m.SetDiagnostics(diags)
}

// finish 保存最终检查点并写出完整结果表
func (o *Orchestrator) finish(ctx context.Context, r *run) error {
	if err := o.checkpoint.Save(ctx, r.rows); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, r.rows); err != nil {
		return errors.Wrap(err, "failed to encode result table")
	}
	if _, err := o.store.Put(ctx, o.config.OutputName, &buf); err != nil {
		return errors.Wrapf(err, "failed to write result table %s", o.config.OutputName)
	}
	r.summary.Output = o.config.OutputName

	if o.metrics != nil {
		o.metrics.MarkRun(time.Now())
	}
	return nil
}

// split 按 size 分批，批次不跨越检查点边界
// offset 为恢复时已提交的行数，保证检查点恰好落在 every 的整数倍上
func split(docs []amount.Document, size, every, offset int) [][]amount.Document {
	var batches [][]amount.Document
	for start := 0; start < len(docs); {
		end := start + size
		if every > 0 {
			committed := offset + start
			if boundary := (committed/every+1)*every - offset; end > boundary {
				end = boundary
			}
		}
		if end > len(docs) {
			end = len(docs)
		}
		batches = append(batches, docs[start:end])
		start = end
	}
	return batches
}
