package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/store"
)

func (d *DB) CreateTriviaQuestion(ctx context.Context, create *store.TriviaQuestion) (*store.TriviaQuestion, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := d.db.QueryRowContext(ctx, `
		INSERT INTO trivia_questions (text, type, correct_answer, choices, submitted_by, status, category, created_ts)
		VALUES (`+placeholders(8)+`)
		RETURNING id`,
		create.Text, string(create.Type), create.CorrectAnswer, pq.Array(create.Choices),
		create.SubmittedBy, string(create.Status), create.Category, create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trivia question")
	}
	return create, nil
}

func (d *DB) ListTriviaQuestions(ctx context.Context, find *store.FindTriviaQuestion) ([]*store.TriviaQuestion, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, string(*find.Status))
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, text, type, correct_answer, choices, submitted_by, status, category, created_ts
		FROM trivia_questions
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list trivia questions")
	}
	defer rows.Close()

	list := make([]*store.TriviaQuestion, 0)
	for rows.Next() {
		q := &store.TriviaQuestion{}
		var qtype, status string
		var choices pq.StringArray
		if err := rows.Scan(&q.ID, &q.Text, &qtype, &q.CorrectAnswer, &choices, &q.SubmittedBy, &status, &q.Category, &q.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan trivia question")
		}
		q.Type = store.TriviaQuestionType(qtype)
		q.Status = store.TriviaApproval(status)
		q.Choices = choices
		list = append(list, q)
	}
	return list, rows.Err()
}

func (d *DB) UpdateTriviaQuestion(ctx context.Context, update *store.UpdateTriviaQuestion) (*store.TriviaQuestion, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set, args := []string{}, []any{}
	if update.Text != nil {
		set, args = append(set, "text = "+placeholder(len(args)+1)), append(args, *update.Text)
	}
	if update.CorrectAnswer != nil {
		set, args = append(set, "correct_answer = "+placeholder(len(args)+1)), append(args, *update.CorrectAnswer)
	}
	if update.Choices != nil {
		set, args = append(set, "choices = "+placeholder(len(args)+1)), append(args, pq.Array(*update.Choices))
	}
	if update.Status != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, string(*update.Status))
	}
	if update.Category != nil {
		set, args = append(set, "category = "+placeholder(len(args)+1)), append(args, *update.Category)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	q := &store.TriviaQuestion{}
	var qtype, status string
	var choices pq.StringArray
	err := d.db.QueryRowContext(ctx, `
		UPDATE trivia_questions SET `+strings.Join(set, ", ")+`
		WHERE id = `+placeholder(len(args))+`
		RETURNING id, text, type, correct_answer, choices, submitted_by, status, category, created_ts`,
		args...,
	).Scan(&q.ID, &q.Text, &qtype, &q.CorrectAnswer, &choices, &q.SubmittedBy, &status, &q.Category, &q.CreatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update trivia question")
	}
	q.Type = store.TriviaQuestionType(qtype)
	q.Status = store.TriviaApproval(status)
	q.Choices = choices
	return q, nil
}

func (d *DB) CreateTriviaSession(ctx context.Context, create *store.TriviaSession) (*store.TriviaSession, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err := d.db.QueryRowContext(ctx, `
		INSERT INTO trivia_sessions (uid, question_id, state, channel_id, question_message_id, started_ts)
		VALUES (`+placeholders(6)+`)
		RETURNING id`,
		create.UID, create.QuestionID, string(create.State), create.ChannelID,
		create.QuestionMessageID, create.StartedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trivia session")
	}
	return create, nil
}

func (d *DB) ListTriviaSessions(ctx context.Context, find *store.FindTriviaSession) ([]*store.TriviaSession, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.State != nil {
		where, args = append(where, "state = "+placeholder(len(args)+1)), append(args, string(*find.State))
	}
	if find.QuestionMessageID != nil {
		where, args = append(where, "question_message_id = "+placeholder(len(args)+1)), append(args, *find.QuestionMessageID)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, uid, question_id, state, channel_id, question_message_id, started_ts, ended_ts
		FROM trivia_sessions
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list trivia sessions")
	}
	defer rows.Close()

	list := make([]*store.TriviaSession, 0)
	for rows.Next() {
		s := &store.TriviaSession{}
		var state string
		if err := rows.Scan(&s.ID, &s.UID, &s.QuestionID, &state, &s.ChannelID, &s.QuestionMessageID, &s.StartedTs, &s.EndedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan trivia session")
		}
		s.State = store.TriviaSessionState(state)
		list = append(list, s)
	}
	return list, rows.Err()
}

func (d *DB) UpdateTriviaSession(ctx context.Context, update *store.UpdateTriviaSession) (*store.TriviaSession, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set, args := []string{}, []any{}
	if update.State != nil {
		set, args = append(set, "state = "+placeholder(len(args)+1)), append(args, string(*update.State))
	}
	if update.QuestionMessageID != nil {
		set, args = append(set, "question_message_id = "+placeholder(len(args)+1)), append(args, *update.QuestionMessageID)
	}
	if update.EndedTs != nil {
		set, args = append(set, "ended_ts = "+placeholder(len(args)+1)), append(args, *update.EndedTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	s := &store.TriviaSession{}
	var state string
	err := d.db.QueryRowContext(ctx, `
		UPDATE trivia_sessions SET `+strings.Join(set, ", ")+`
		WHERE id = `+placeholder(len(args))+`
		RETURNING id, uid, question_id, state, channel_id, question_message_id, started_ts, ended_ts`,
		args...,
	).Scan(&s.ID, &s.UID, &s.QuestionID, &state, &s.ChannelID, &s.QuestionMessageID, &s.StartedTs, &s.EndedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update trivia session")
	}
	s.State = store.TriviaSessionState(state)
	return s, nil
}

func (d *DB) CreateTriviaAnswer(ctx context.Context, create *store.TriviaAnswer) (*store.TriviaAnswer, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO trivia_answers (session_id, user_id, text, score, match_kind, ordinal, created_ts)
		VALUES (`+placeholders(7)+`)`,
		create.SessionID, create.UserID, create.Text, create.Score, create.MatchKind,
		create.Ordinal, create.CreatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trivia answer")
	}
	return create, nil
}

func (d *DB) ListTriviaAnswers(ctx context.Context, sessionID int32) ([]*store.TriviaAnswer, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT session_id, user_id, text, score, match_kind, ordinal, created_ts
		FROM trivia_answers
		WHERE session_id = $1
		ORDER BY ordinal ASC`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list trivia answers")
	}
	defer rows.Close()

	list := make([]*store.TriviaAnswer, 0)
	for rows.Next() {
		a := &store.TriviaAnswer{}
		if err := rows.Scan(&a.SessionID, &a.UserID, &a.Text, &a.Score, &a.MatchKind, &a.Ordinal, &a.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan trivia answer")
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
