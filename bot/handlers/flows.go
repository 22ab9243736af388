package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/bot/conversation"
	"github.com/jonesycrew/ashbot/bot/discord"
	"github.com/jonesycrew/ashbot/store"
)

// Trivia submission flow steps.
const (
	stepTypeSelection = "question_type_selection"
	stepQuestionInput = "question_input"
	stepAnswerInput   = "answer_input"
	stepPreview       = "preview"
)

// Approval flow steps.
const (
	stepDecision       = "decision"
	stepModifyQuestion = "modify_question"
	stepModifyAnswer   = "modify_answer"
)

// Announcement flow steps.
const (
	stepContentInput    = "content_input"
	stepAnnouncePreview = "announce_preview"
)

var (
	announcePattern     = regexp.MustCompile(`(?i)\b(?:make|create|post)\s+an?\s+announcement\b`)
	submitTriviaPattern = regexp.MustCompile(`(?i)\bsubmit\s+(?:a\s+)?trivia\s+question\b`)
	startTriviaPattern  = regexp.MustCompile(`(?i)\bstart\s+trivia\b(?:\s+#?(\d+))?`)
	endTriviaPattern    = regexp.MustCompile(`(?i)\b(?:end|complete|finish)\s+trivia\b(?:\s+#?(\d+))?`)
	remindLeadPattern   = regexp.MustCompile(`(?i)^remind\b`)
)

// HandleNaturalCommand tries the addressed natural-language command patterns.
// It reports whether the text was consumed.
func (h *Handlers) HandleNaturalCommand(ctx context.Context, msg *discord.Message, text string) (bool, error) {
	switch {
	case remindLeadPattern.MatchString(text):
		return true, h.remindNatural(ctx, msg, text)

	case submitTriviaPattern.MatchString(text):
		if !msg.IsDM() {
			h.reply(ctx, msg, "Trivia submission runs over direct message. Message me privately to begin.")
			return true, nil
		}
		h.startTriviaSubmission(ctx, msg)
		return true, nil

	case announcePattern.MatchString(text):
		if !h.IsOperator(msg) {
			h.reply(ctx, msg, accessDenied)
			return true, nil
		}
		if !msg.IsDM() {
			h.reply(ctx, msg, "Announcement drafting runs over direct message. Message me privately to begin.")
			return true, nil
		}
		h.conversations.Start(msg.AuthorID, conversation.FlowAnnouncement, stepContentInput)
		h.reply(ctx, msg, "Transmit the announcement content. Reply `cancel` at any point to abort.")
		return true, nil

	case startTriviaPattern.MatchString(text):
		if !h.IsOperator(msg) {
			h.reply(ctx, msg, accessDenied)
			return true, nil
		}
		return true, h.startTriviaSession(ctx, msg, startTriviaPattern.FindStringSubmatch(text)[1])

	case endTriviaPattern.MatchString(text):
		if !h.IsOperator(msg) {
			h.reply(ctx, msg, accessDenied)
			return true, nil
		}
		return true, h.endTriviaSession(ctx, msg, endTriviaPattern.FindStringSubmatch(text)[1])
	}
	return false, nil
}

// HandleConversationMessage advances the author's active flow with the raw
// message text. The router guarantees an active state exists.
func (h *Handlers) HandleConversationMessage(ctx context.Context, msg *discord.Message) error {
	state := h.conversations.Get(msg.AuthorID)
	if state == nil {
		return nil
	}
	text := strings.TrimSpace(msg.Content)
	if strings.EqualFold(text, conversation.CancelKeyword) {
		h.conversations.End(msg.AuthorID)
		h.reply(ctx, msg, "Dialog terminated.")
		return nil
	}

	switch state.Flow {
	case conversation.FlowTriviaSubmission:
		return h.triviaSubmissionStep(ctx, msg, state, text)
	case conversation.FlowApproval:
		return h.approvalStep(ctx, msg, state, text)
	case conversation.FlowAnnouncement:
		return h.announcementStep(ctx, msg, state, text)
	}
	h.conversations.End(msg.AuthorID)
	return nil
}

func (h *Handlers) startTriviaSubmission(ctx context.Context, msg *discord.Message) {
	h.conversations.Start(msg.AuthorID, conversation.FlowTriviaSubmission, stepTypeSelection)
	h.reply(ctx, msg, "Trivia submission initiated. Question type?\n1. Single answer\n2. Multiple choice\nReply `cancel` at any point to abort.")
}

func (h *Handlers) triviaSubmissionStep(ctx context.Context, msg *discord.Message, state *conversation.State, text string) error {
	switch state.Step {
	case stepTypeSelection:
		var qtype store.TriviaQuestionType
		switch strings.ToLower(text) {
		case "1", "single", "single answer":
			qtype = store.TriviaSingleAnswer
		case "2", "multiple", "multiple choice":
			qtype = store.TriviaMultipleChoice
		default:
			h.reply(ctx, msg, "Reply `1` for single answer or `2` for multiple choice.")
			return nil
		}
		h.conversations.Advance(msg.AuthorID, stepQuestionInput, map[string]string{"type": string(qtype)})
		h.reply(ctx, msg, "Acknowledged. Transmit the question text.")

	case stepQuestionInput:
		if len(text) < 5 {
			h.reply(ctx, msg, "That question is too short. Transmit the full question text.")
			return nil
		}
		h.conversations.Advance(msg.AuthorID, stepAnswerInput, map[string]string{"question": text})
		if state.Data["type"] == string(store.TriviaMultipleChoice) {
			h.reply(ctx, msg, "Transmit the choices separated by commas, correct answer first.")
		} else {
			h.reply(ctx, msg, "Transmit the correct answer.")
		}

	case stepAnswerInput:
		data := map[string]string{"answer": text}
		if state.Data["type"] == string(store.TriviaMultipleChoice) {
			choices := splitChoices(text)
			if len(choices) < 2 {
				h.reply(ctx, msg, "Multiple choice needs at least two comma-separated options.")
				return nil
			}
			data["answer"] = choices[0]
			data["choices"] = strings.Join(choices, "\x1f")
		}
		h.conversations.Advance(msg.AuthorID, stepPreview, data)
		h.reply(ctx, msg, h.renderSubmissionPreview(msg.AuthorID))

	case stepPreview:
		switch strings.ToLower(text) {
		case "confirm", "yes":
			return h.finishTriviaSubmission(ctx, msg)
		case "edit":
			h.conversations.Advance(msg.AuthorID, stepQuestionInput, nil)
			h.reply(ctx, msg, "Resuming edit. Transmit the question text.")
		default:
			h.reply(ctx, msg, "Reply `confirm` to submit, `edit` to revise, or `cancel` to abort.")
		}
	}
	return nil
}

func (h *Handlers) renderSubmissionPreview(userID string) string {
	state := h.conversations.Get(userID)
	var b strings.Builder
	b.WriteString("Preview:\n")
	b.WriteString("Question: " + state.Data["question"] + "\n")
	if choices := state.Data["choices"]; choices != "" {
		b.WriteString("Choices: " + strings.Join(strings.Split(choices, "\x1f"), ", ") + "\n")
	}
	b.WriteString("Answer: " + state.Data["answer"] + "\n")
	b.WriteString("Reply `confirm` to submit, `edit` to revise, or `cancel` to abort.")
	return b.String()
}

func (h *Handlers) finishTriviaSubmission(ctx context.Context, msg *discord.Message) error {
	state := h.conversations.Get(msg.AuthorID)
	question := &store.TriviaQuestion{
		Text:          state.Data["question"],
		Type:          store.TriviaQuestionType(state.Data["type"]),
		CorrectAnswer: state.Data["answer"],
		SubmittedBy:   msg.AuthorID,
		Status:        store.TriviaPending,
	}
	if choices := state.Data["choices"]; choices != "" {
		question.Choices = strings.Split(choices, "\x1f")
	}

	created, err := h.store.CreateTriviaQuestion(ctx, question)
	if err != nil {
		return errors.Wrap(err, "create trivia question")
	}
	h.conversations.End(msg.AuthorID)
	h.reply(ctx, msg, "Question logged and queued for moderator approval. You will be notified of the verdict.")

	h.requestApproval(ctx, created)
	return nil
}

// requestApproval DMs the creator identity with the pending question and
// opens the approval dialog.
func (h *Handlers) requestApproval(ctx context.Context, q *store.TriviaQuestion) {
	creatorID := h.profile.CreatorUserID
	if creatorID == "" {
		slog.Warn("no creator identity configured, question stays pending", "question_id", q.ID)
		return
	}
	h.conversations.Start(creatorID, conversation.FlowApproval, stepDecision)
	h.conversations.Advance(creatorID, stepDecision, map[string]string{
		"question_id": strconv.Itoa(int(q.ID)),
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Trivia question #%d awaits review.\n", q.ID)
	b.WriteString("Question: " + q.Text + "\n")
	if len(q.Choices) > 0 {
		b.WriteString("Choices: " + strings.Join(q.Choices, ", ") + "\n")
	}
	b.WriteString("Answer: " + q.CorrectAnswer + "\n")
	b.WriteString("Reply `1` to approve, `2` to modify, `3` to reject.")
	if err := h.sender.SendDM(ctx, creatorID, b.String()); err != nil {
		slog.Error("approval request dm failed", "question_id", q.ID, "error", err)
	}
}

func (h *Handlers) approvalStep(ctx context.Context, msg *discord.Message, state *conversation.State, text string) error {
	id, err := strconv.Atoi(state.Data["question_id"])
	if err != nil {
		h.conversations.End(msg.AuthorID)
		return errors.Wrap(err, "approval dialog lost its question")
	}
	questionID := int32(id)

	switch state.Step {
	case stepDecision:
		switch strings.ToLower(text) {
		case "1", "approve":
			return h.settleApproval(ctx, msg, questionID, store.TriviaApproved,
				"has been approved and is eligible for sessions")
		case "2", "modify":
			h.conversations.Advance(msg.AuthorID, stepModifyQuestion, nil)
			h.reply(ctx, msg, "Transmit the revised question text, or `keep` to leave it unchanged.")
		case "3", "reject":
			return h.settleApproval(ctx, msg, questionID, store.TriviaRejected,
				"was not approved")
		default:
			h.reply(ctx, msg, "Reply `1` to approve, `2` to modify, `3` to reject.")
		}

	case stepModifyQuestion:
		if !strings.EqualFold(text, "keep") {
			if _, err := h.store.UpdateTriviaQuestion(ctx, &store.UpdateTriviaQuestion{
				ID:   questionID,
				Text: &text,
			}); err != nil {
				return err
			}
		}
		h.conversations.Advance(msg.AuthorID, stepModifyAnswer, nil)
		h.reply(ctx, msg, "Transmit the revised answer, or `keep` to leave it unchanged.")

	case stepModifyAnswer:
		if !strings.EqualFold(text, "keep") {
			if _, err := h.store.UpdateTriviaQuestion(ctx, &store.UpdateTriviaQuestion{
				ID:            questionID,
				CorrectAnswer: &text,
			}); err != nil {
				return err
			}
		}
		return h.settleApproval(ctx, msg, questionID, store.TriviaApproved,
			"has been approved with modifications")
	}
	return nil
}

func (h *Handlers) settleApproval(ctx context.Context, msg *discord.Message, questionID int32, status store.TriviaApproval, verdict string) error {
	updated, err := h.store.UpdateTriviaQuestion(ctx, &store.UpdateTriviaQuestion{
		ID:     questionID,
		Status: &status,
	})
	if err != nil {
		return err
	}
	h.conversations.End(msg.AuthorID)
	h.reply(ctx, msg, fmt.Sprintf("Question #%d recorded as %s.", questionID, status))

	if updated.SubmittedBy != "" {
		note := fmt.Sprintf("Your trivia question #%d %s.", questionID, verdict)
		if err := h.sender.SendDM(ctx, updated.SubmittedBy, note); err != nil {
			slog.Error("submitter verdict dm failed", "question_id", questionID, "error", err)
		}
	}
	return nil
}

func (h *Handlers) announcementStep(ctx context.Context, msg *discord.Message, state *conversation.State, text string) error {
	switch state.Step {
	case stepContentInput:
		h.conversations.Advance(msg.AuthorID, stepAnnouncePreview, map[string]string{"content": text})
		h.reply(ctx, msg, "Preview:\n"+text+"\nReply `confirm` to post, `edit` to revise, or `cancel` to abort.")

	case stepAnnouncePreview:
		switch strings.ToLower(text) {
		case "confirm", "yes":
			content := state.Data["content"]
			h.conversations.End(msg.AuthorID)
			target := h.announcementTarget(ctx)
			if target == "" {
				h.reply(ctx, msg, "No announcement channel is configured.")
				return nil
			}
			if _, err := h.sender.SendMessage(ctx, target, content); err != nil {
				return errors.Wrap(err, "post announcement")
			}
			h.reply(ctx, msg, "Announcement posted.")
		case "edit":
			h.conversations.Advance(msg.AuthorID, stepContentInput, nil)
			h.reply(ctx, msg, "Transmit the revised announcement content.")
		default:
			h.reply(ctx, msg, "Reply `confirm` to post, `edit` to revise, or `cancel` to abort.")
		}
	}
	return nil
}

// announcementTarget resolves the runtime override, falling back to the
// configured channel.
func (h *Handlers) announcementTarget(ctx context.Context) string {
	if v, ok, err := h.store.GetConfig(ctx, store.ConfigKeyAnnounceTarget); err == nil && ok && v != "" {
		return v
	}
	return h.profile.AnnouncementChannelID
}

func (h *Handlers) startTriviaSession(ctx context.Context, msg *discord.Message, idArg string) error {
	channelID := h.profile.TriviaChannelID
	if channelID == "" {
		channelID = msg.ChannelID
	}

	var questionID int32
	if idArg != "" {
		id, err := strconv.Atoi(idArg)
		if err != nil {
			h.reply(ctx, msg, "Question id must be numeric.")
			return nil
		}
		questionID = int32(id)
	} else {
		approved := store.TriviaApproved
		questions, err := h.store.ListTriviaQuestions(ctx, &store.FindTriviaQuestion{Status: &approved})
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			h.reply(ctx, msg, "No approved questions available. Submissions are welcome.")
			return nil
		}
		questionID = questions[0].ID
	}

	session, err := h.trivia.StartSession(ctx, questionID, channelID)
	if err != nil {
		h.reply(ctx, msg, fmt.Sprintf("Cannot start a session: %v.", err))
		return nil
	}
	h.reply(ctx, msg, fmt.Sprintf("Trivia session %s started (question #%d).", session.UID, session.QuestionID))
	return nil
}

func (h *Handlers) endTriviaSession(ctx context.Context, msg *discord.Message, idArg string) error {
	var sessionID int32
	if idArg != "" {
		id, err := strconv.Atoi(idArg)
		if err != nil {
			h.reply(ctx, msg, "Session id must be numeric.")
			return nil
		}
		sessionID = int32(id)
	} else {
		active := store.TriviaSessionActive
		sessions, err := h.store.ListTriviaSessions(ctx, &store.FindTriviaSession{State: &active})
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			h.reply(ctx, msg, "No active trivia session.")
			return nil
		}
		sessionID = sessions[0].ID
	}

	winner, err := h.trivia.CompleteSession(ctx, sessionID)
	if err != nil {
		h.reply(ctx, msg, fmt.Sprintf("Cannot complete the session: %v.", err))
		return nil
	}
	if winner == nil {
		h.reply(ctx, msg, "Session closed. No full-credit answer was recorded.")
	} else {
		h.reply(ctx, msg, fmt.Sprintf("Session closed. Winner: %s.", discord.MentionUser(winner.UserID)))
	}
	return nil
}

func splitChoices(text string) []string {
	var choices []string
	for _, c := range strings.Split(text, ",") {
		if c = strings.TrimSpace(c); c != "" {
			choices = append(choices, c)
		}
	}
	return choices
}
