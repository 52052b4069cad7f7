package backend

import (
	"bytes"
	"encoding/binary"
	"math/bits"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stayf/filament/backend/internal/utils"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// ErrQueryPoolExhausted is returned from Timestamps.NextQuery when no adjacent
// pair of query slots is free. Unlike the contract violations in this package,
// exhaustion is a recoverable condition: the caller may skip the timer query
// or enlarge the pool via TimestampsCreateOptions.QueryCount.
var ErrQueryPoolExhausted error = errors.New("no free timestamp query slots are available")

// ErrResultNotReady is returned from Timestamps.Result when the device has not
// finished writing one or both timestamps of the query.
var ErrResultNotReady error = errors.New("the timestamp query results are not yet available")

// TimestampsCreateFlags indicate specific Timestamps behaviors to activate or deactivate
type TimestampsCreateFlags int32

var timestampsCreateFlagsMapping = common.NewFlagStringMapping[TimestampsCreateFlags]()

func (f TimestampsCreateFlags) Register(str string) {
	timestampsCreateFlagsMapping.Register(f, str)
}
func (f TimestampsCreateFlags) String() string {
	return timestampsCreateFlagsMapping.FlagsToString(f)
}

const (
	// TimestampsCreateExternallySynchronized ensures that this Timestamps pool will not be
	// synchronized internally. The consumer must guarantee NextQuery and ClearQuery are called
	// from only one thread at a time or are synchronized by some other mechanism, but
	// performance may improve because internal mutexes are not used.
	TimestampsCreateExternallySynchronized TimestampsCreateFlags = 1 << iota
)

func init() {
	TimestampsCreateExternallySynchronized.Register("TimestampsCreateExternallySynchronized")
}

const (
	// defaultTimestampQueryCount is the number of query slots created when none is provided
	// via TimestampsCreateOptions. Each timer query consumes two slots.
	defaultTimestampQueryCount = 32
	// maxTimestampQueryCount bounds the pool to the width of the slot bitset.
	maxTimestampQueryCount = 64
)

// TimestampsCreateOptions contains optional settings when creating a Timestamps pool
type TimestampsCreateOptions struct {
	// Flags indicates specific Timestamps behaviors to activate or deactivate
	Flags TimestampsCreateFlags
	// QueryCount is the number of device query slots to create. It must be even and no
	// greater than 64. When 0, defaultTimestampQueryCount is used.
	QueryCount int
}

// TimerQuery identifies one live timer query: a begin/end pair of slots in a
// Timestamps pool. Values are handed out by Timestamps.NextQuery and returned
// with Timestamps.ClearQuery.
type TimerQuery struct {
	beginQueryIndex int
	endQueryIndex   int
}

// BeginQueryIndex returns the pool slot that receives the begin timestamp.
func (q *TimerQuery) BeginQueryIndex() int {
	return q.beginQueryIndex
}

// EndQueryIndex returns the pool slot that receives the end timestamp.
func (q *TimerQuery) EndQueryIndex() int {
	return q.endQueryIndex
}

// QueryResult holds the raw readback of one timer query: two {timestamp,
// availability} pairs in GPU ticks. Conversion to elapsed time is the
// caller's job, using the device timestamp period from
// Context.PhysicalDeviceLimits.
type QueryResult [4]uint64

func (r QueryResult) BeginTimestamp() uint64 { return r[0] }
func (r QueryResult) BeginAvailable() bool   { return r[1] != 0 }
func (r QueryResult) EndTimestamp() uint64   { return r[2] }
func (r QueryResult) EndAvailable() bool     { return r[3] != 0 }

// Timestamps is a fixed-capacity pool of device timestamp query slots. Slots
// are acquired in adjacent begin/end pairs, one pair per timer query, and a
// slot is never handed to two live timer queries at once.
//
// NextQuery and ClearQuery may be called from any recording thread;
// BeginQuery, EndQuery and Result must be called from the thread that owns
// the provided command buffer's recording.
type Timestamps struct {
	logger *slog.Logger
	device core1_0.Device
	pool   core1_0.QueryPool

	queryCount int

	// Guards usedQueries only- never held across a device call, so slot
	// acquisition cannot stall on GPU latency.
	mutex       utils.OptionalMutex
	usedQueries uint64
}

// NewTimestamps creates a new Timestamps pool backed by a device query pool
//
// device - The Device that timestamps will be recorded on
//
// options - Optional parameters: it is valid to leave all the fields blank
func NewTimestamps(logger *slog.Logger, device core1_0.Device, options TimestampsCreateOptions) (*Timestamps, error) {
	logger = defaultLogger(logger)
	useMutex := options.Flags&TimestampsCreateExternallySynchronized == 0

	queryCount := options.QueryCount
	if queryCount == 0 {
		queryCount = defaultTimestampQueryCount
	}
	if queryCount < 2 || queryCount > maxTimestampQueryCount {
		return nil, errors.Errorf("TimestampsCreateOptions.QueryCount is %d, but must be between 2 and %d", queryCount, maxTimestampQueryCount)
	}
	if queryCount%2 != 0 {
		return nil, errors.Errorf("TimestampsCreateOptions.QueryCount is %d, but timer queries consume slots in pairs, so it must be even", queryCount)
	}

	pool, _, err := device.CreateQueryPool(nil, core1_0.QueryPoolCreateInfo{
		QueryType:  core1_0.QueryTypeTimestamp,
		QueryCount: queryCount,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create the timestamp query pool")
	}

	return &Timestamps{
		logger:     logger,
		device:     device,
		pool:       pool,
		queryCount: queryCount,
		mutex:      utils.OptionalMutex{UseMutex: useMutex},
	}, nil
}

// NextQuery acquires an adjacent pair of free slots and returns them as a
// TimerQuery. It returns ErrQueryPoolExhausted when fewer than two paired
// slots remain; it never blocks on the device.
func (t *Timestamps) NextQuery() (*TimerQuery, error) {
	t.logger.Debug("Timestamps::NextQuery")

	t.mutex.Lock()
	defer t.mutex.Unlock()

	for queryIndex := 0; queryIndex < t.queryCount; queryIndex += 2 {
		pairMask := uint64(0b11) << uint(queryIndex)
		if t.usedQueries&pairMask != 0 {
			continue
		}

		t.usedQueries |= pairMask
		return &TimerQuery{
			beginQueryIndex: queryIndex,
			endQueryIndex:   queryIndex + 1,
		}, nil
	}

	return nil, ErrQueryPoolExhausted
}

// ClearQuery returns a timer query's slot pair to the pool. The slots are
// immediately eligible for reuse, so any in-flight timestamp writes into them
// must have completed on the device before calling. Clearing a query that is
// not currently allocated is a contract violation.
func (t *Timestamps) ClearQuery(query *TimerQuery) {
	t.logger.Debug("Timestamps::ClearQuery", slog.Int("BeginQueryIndex", query.beginQueryIndex))

	t.mutex.Lock()
	defer t.mutex.Unlock()

	pairMask := uint64(0b11) << uint(query.beginQueryIndex)
	if t.usedQueries&pairMask != pairMask {
		panic("attempting to clear a timer query whose slots are not allocated")
	}

	t.usedQueries &= ^pairMask
}

// BeginQuery resets the query's slot pair and records the begin timestamp
// into the provided command buffer. No CPU-side blocking occurs.
func (t *Timestamps) BeginQuery(commandBuffer core1_0.CommandBuffer, query *TimerQuery) {
	commandBuffer.CmdResetQueryPool(t.pool, query.beginQueryIndex, 2)
	commandBuffer.CmdWriteTimestamp(core1_0.PipelineStageTopOfPipe, t.pool, query.beginQueryIndex)
}

// EndQuery records the end timestamp into the provided command buffer.
func (t *Timestamps) EndQuery(commandBuffer core1_0.CommandBuffer, query *TimerQuery) {
	commandBuffer.CmdWriteTimestamp(core1_0.PipelineStageBottomOfPipe, t.pool, query.endQueryIndex)
}

// Result reads back the raw timestamp values for a timer query. The caller is
// responsible for ensuring the command buffer that recorded the query has
// completed execution, via fence synchronization; rather than trusting that
// discipline blindly, results are requested with availability words and
// ErrResultNotReady is returned when either timestamp has not landed.
func (t *Timestamps) Result(query *TimerQuery) (QueryResult, common.VkResult, error) {
	var result QueryResult

	resultData := make([]byte, 32)
	res, err := t.pool.PopulateResults(query.beginQueryIndex, 2, resultData, 16,
		core1_0.QueryResult64Bit|core1_0.QueryResultWithAvailability)
	if err != nil {
		return result, res, errors.Wrap(err, "failed to read back timestamp query results")
	}

	err = binary.Read(bytes.NewReader(resultData), common.ByteOrder, result[:])
	if err != nil {
		return result, res, err
	}

	if !result.BeginAvailable() || !result.EndAvailable() {
		return result, res, ErrResultNotReady
	}

	return result, res, nil
}

// UsedQueryCount returns the number of slots currently allocated to live
// timer queries.
func (t *Timestamps) UsedQueryCount() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return bits.OnesCount64(t.usedQueries)
}

// QueryCount returns the pool's slot capacity.
func (t *Timestamps) QueryCount() int {
	return t.queryCount
}

// BuildStatsString writes the pool's occupancy as json
func (t *Timestamps) BuildStatsString(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	obj.Name("QueryCount").Int(t.queryCount)
	obj.Name("UsedQueries").Int(t.UsedQueryCount())
}

// Destroy destroys the underlying device query pool. No timer queries may be
// live when it is called.
func (t *Timestamps) Destroy() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.usedQueries != 0 {
		panic("attempting to destroy a timestamp pool that still has live timer queries")
	}

	t.pool.Destroy(nil)
	t.pool = nil
}
