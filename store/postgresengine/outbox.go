package postgresengine

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/outbox"
	"github.com/Facupelli/equipment-rental/store"
)

const (
	actionAppendOutboxEvents       = "append_outbox_events"
	actionFindUnpublishedEvents    = "find_unpublished_outbox_events"
	actionClaimOutboxEvent         = "claim_outbox_event"
	actionFindEventsByAggregate    = "find_outbox_events_by_aggregate"
	actionMarkOutboxPublished      = "mark_outbox_event_published"
	actionRecordOutboxFailure      = "record_outbox_event_failure"
	maxLastErrorLength             = 2000
	logMsgOutboxEventsAppended     = "outbox events appended"
	logAttrEventTypes              = "event_types"
	logAttrAggregateID             = "aggregate_id"
	logAttrEventCount              = "event_count"
	logAttrMaxAttempts             = "max_attempts"
	logMsgUnpublishedEventsFetched = "unpublished outbox events fetched"
)

var outboxColumns = []any{"id", "event_type", "aggregate_id", "payload", "created_at", "published_at", "attempts", "last_error"}

// AppendOutboxEvents stages events. h should be the transaction that writes the state change they describe.
func (s Store) AppendOutboxEvents(ctx context.Context, h store.Handle, events ...outbox.Event) (err error) {
	if len(events) == 0 {
		return nil
	}

	observer, ctx := s.observe(ctx, actionAppendOutboxEvents)
	defer func() { observer.finish(err) }()

	rows := make([]any, 0, len(events))
	eventTypes := make([]string, 0, len(events))

	for _, event := range events {
		rows = append(rows, goqu.Record{
			"id":           event.ID.String(),
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
			"payload":      jsonb(event.Payload),
			"created_at":   event.CreatedAt,
			"attempts":     event.Attempts,
			"last_error":   event.LastError,
		})
		eventTypes = append(eventTypes, event.EventType)
	}

	affected, err := s.exec(ctx, h, actionAppendOutboxEvents, dialect.Insert(tableOutboxEvents).Prepared(true).Rows(rows...))
	if err != nil {
		return err
	}

	if err = s.expectRows(ctx, actionAppendOutboxEvents, events[0].AggregateID, affected, int64(len(events))); err != nil {
		return err
	}

	observer.addRows(int(affected))
	s.logOperation(ctx, logMsgOutboxEventsAppended,
		logAttrAggregateID, events[0].AggregateID.String(),
		logAttrEventTypes, eventTypes,
	)

	return nil
}

// FindUnpublishedOutboxEvents returns up to limit unpublished events, oldest first, skipping rows another
// relay holds. The rows stay locked for as long as h's transaction, so a nil h only peeks.
// With maxAttempts > 0 events that failed that often are left out.
func (s Store) FindUnpublishedOutboxEvents(
	ctx context.Context,
	h store.Handle,
	limit int,
	maxAttempts int,
) (events []outbox.Event, err error) {
	observer, ctx := s.observe(ctx, actionFindUnpublishedEvents)
	defer func() { observer.finish(err) }()

	where := []goqu.Expression{goqu.C("published_at").IsNull()}
	if maxAttempts > 0 {
		where = append(where, goqu.C("attempts").Lt(maxAttempts))
	}

	stmt := dialect.From(tableOutboxEvents).Prepared(true).
		Select(outboxColumns...).
		Where(where...).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Limit(uint(limit)).
		ForUpdate(exp.SkipLocked)

	if events, err = s.findOutboxEvents(ctx, h, actionFindUnpublishedEvents, stmt); err != nil {
		return nil, err
	}

	observer.addRows(len(events))

	if len(events) > 0 {
		s.logOperation(ctx, logMsgUnpublishedEventsFetched,
			logAttrEventCount, len(events),
			logAttrMaxAttempts, maxAttempts,
		)
	}

	return events, nil
}

// ClaimOutboxEvent locks the event for the rest of the transaction h. It reports false when the event is
// published, has reached maxAttempts (with maxAttempts > 0), or is locked by another relay.
func (s Store) ClaimOutboxEvent(
	ctx context.Context,
	h store.Handle,
	id uuid.UUID,
	maxAttempts int,
) (event outbox.Event, claimed bool, err error) {
	observer, ctx := s.observe(ctx, actionClaimOutboxEvent)
	defer func() { observer.finish(err) }()

	where := []goqu.Expression{goqu.C("id").Eq(id.String()), goqu.C("published_at").IsNull()}
	if maxAttempts > 0 {
		where = append(where, goqu.C("attempts").Lt(maxAttempts))
	}

	stmt := dialect.From(tableOutboxEvents).Prepared(true).
		Select(outboxColumns...).
		Where(where...).
		ForUpdate(exp.SkipLocked)

	events, err := s.findOutboxEvents(ctx, h, actionClaimOutboxEvent, stmt)
	if err != nil {
		return outbox.Event{}, false, err
	}

	if len(events) == 0 {
		return outbox.Event{}, false, nil
	}

	observer.addRows(1)

	return events[0], true, nil
}

// FindOutboxEventsByAggregate returns every event staged for the aggregate, oldest first.
func (s Store) FindOutboxEventsByAggregate(
	ctx context.Context,
	h store.Handle,
	aggregateID uuid.UUID,
) (events []outbox.Event, err error) {
	observer, ctx := s.observe(ctx, actionFindEventsByAggregate)
	defer func() { observer.finish(err) }()

	stmt := dialect.From(tableOutboxEvents).Prepared(true).
		Select(outboxColumns...).
		Where(goqu.C("aggregate_id").Eq(aggregateID.String())).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())

	if events, err = s.findOutboxEvents(ctx, h, actionFindEventsByAggregate, stmt); err != nil {
		return nil, err
	}

	observer.addRows(len(events))

	return events, nil
}

// MarkOutboxEventPublished sets published_at once; an already published event is left untouched.
func (s Store) MarkOutboxEventPublished(ctx context.Context, h store.Handle, id uuid.UUID, at time.Time) (err error) {
	observer, ctx := s.observe(ctx, actionMarkOutboxPublished)
	defer func() { observer.finish(err) }()

	stmt := dialect.Update(tableOutboxEvents).Prepared(true).
		Set(goqu.Record{"published_at": at.UTC()}).
		Where(goqu.C("id").Eq(id.String()), goqu.C("published_at").IsNull())

	affected, err := s.exec(ctx, h, actionMarkOutboxPublished, stmt)
	if err != nil {
		return err
	}

	observer.addRows(int(affected))

	return nil
}

// RecordOutboxEventFailure increments the attempt counter and stores the reason, truncated to
// at most maxLastErrorLength bytes of valid UTF-8.
func (s Store) RecordOutboxEventFailure(ctx context.Context, h store.Handle, id uuid.UUID, reason string) (err error) {
	observer, ctx := s.observe(ctx, actionRecordOutboxFailure)
	defer func() { observer.finish(err) }()

	reason = truncateReason(reason, maxLastErrorLength)

	stmt := dialect.Update(tableOutboxEvents).Prepared(true).
		Set(goqu.Record{
			"attempts":   goqu.L("attempts + 1"),
			"last_error": reason,
		}).
		Where(goqu.C("id").Eq(id.String()))

	affected, err := s.exec(ctx, h, actionRecordOutboxFailure, stmt)
	if err != nil {
		return err
	}

	observer.addRows(int(affected))

	return nil
}

// truncateReason cuts reason to at most limit bytes without splitting a rune.
// Invalid UTF-8 coming from the failing consumer is replaced, postgres rejects it in text columns.
func truncateReason(reason string, limit int) string {
	reason = strings.ToValidUTF8(reason, "\uFFFD")
	if len(reason) <= limit {
		return reason
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}

	return reason[:cut]
}

func (s Store) findOutboxEvents(ctx context.Context, h store.Handle, action string, stmt statement) ([]outbox.Event, error) {
	rows, err := s.query(ctx, h, action, stmt)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	events := make([]outbox.Event, 0)

	for rows.Next() {
		var (
			event       outbox.Event
			publishedAt sql.NullTime
		)

		if err = rows.Scan(
			&event.ID,
			&event.EventType,
			&event.AggregateID,
			&event.Payload,
			&event.CreatedAt,
			&publishedAt,
			&event.Attempts,
			&event.LastError,
		); err != nil {
			return nil, s.scanError(ctx, err)
		}

		if publishedAt.Valid {
			at := publishedAt.Time.UTC()
			event.PublishedAt = &at
		}

		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, event)
	}

	if err = s.rowsError(rows); err != nil {
		return nil, err
	}

	return events, nil
}
