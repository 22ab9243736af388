package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/store"
)

func (d *DB) CreateReminder(ctx context.Context, create *store.Reminder) (*store.Reminder, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := d.db.QueryRowContext(ctx, `
		INSERT INTO reminders (
			user_id, text, scheduled_ts, delivery_kind, channel_id, status,
			auto_action, auto_action_payload, created_by, created_ts
		) VALUES (`+placeholders(10)+`)
		RETURNING id`,
		create.UserID, create.Text, create.ScheduledTs, string(create.DeliveryKind),
		create.ChannelID, string(create.Status), string(create.AutoAction),
		create.AutoActionPayload, create.CreatedBy, create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reminder")
	}
	return create, nil
}

func (d *DB) ListReminders(ctx context.Context, find *store.FindReminder) ([]*store.Reminder, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, string(*find.Status))
	}
	if find.DueBefore != nil {
		where, args = append(where, "scheduled_ts <= "+placeholder(len(args)+1)), append(args, *find.DueBefore)
	}

	// Same-instant reminders deliver in ascending identifier order.
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, text, scheduled_ts, delivery_kind, channel_id, status,
			auto_action, auto_action_payload, delivered_ts, cancelled_ts, fail_reason,
			created_by, created_ts
		FROM reminders
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY scheduled_ts ASC, id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reminders")
	}
	defer rows.Close()

	list := make([]*store.Reminder, 0)
	for rows.Next() {
		r := &store.Reminder{}
		var kind, status, action string
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Text, &r.ScheduledTs, &kind, &r.ChannelID, &status,
			&action, &r.AutoActionPayload, &r.DeliveredTs, &r.CancelledTs, &r.FailReason,
			&r.CreatedBy, &r.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan reminder")
		}
		r.DeliveryKind = store.DeliveryKind(kind)
		r.Status = store.ReminderStatus(status)
		r.AutoAction = store.AutoActionKind(action)
		list = append(list, r)
	}
	return list, rows.Err()
}

// TransitionReminder moves a pending reminder to a terminal status. The
// WHERE clause on the current status makes the transition a compare-and-set:
// a concurrent worker that already transitioned the row sees zero rows
// affected and reports false.
func (d *DB) TransitionReminder(ctx context.Context, id int32, to store.ReminderStatus, ts int64, failReason string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var stmt string
	switch to {
	case store.ReminderDelivered, store.ReminderFailed:
		stmt = `UPDATE reminders SET status = $1, delivered_ts = $2, fail_reason = $3
			WHERE id = $4 AND status = 'pending'`
	case store.ReminderCancelled:
		stmt = `UPDATE reminders SET status = $1, cancelled_ts = $2, fail_reason = $3
			WHERE id = $4 AND status = 'pending'`
	default:
		return false, errors.Errorf("invalid reminder transition to %q", to)
	}

	result, err := d.db.ExecContext(ctx, stmt, string(to), ts, failReason, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to transition reminder")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read rows affected")
	}
	return n > 0, nil
}
