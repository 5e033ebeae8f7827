package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
)

type notificationStore interface {
	InsertBatch(ctx context.Context, notifications []models.Notification) error
}

type notificationDispatcher interface {
	Dispatch(notifications []models.Notification)
}

// NotificationOutbox collects the notifications produced by one operation so
// they can be written in a single batch.
type NotificationOutbox struct {
	items []models.Notification
}

// NewNotificationOutbox returns an empty outbox.
func NewNotificationOutbox() *NotificationOutbox {
	return &NotificationOutbox{}
}

// Items returns the collected notifications.
func (o *NotificationOutbox) Items() []models.Notification {
	if o == nil {
		return nil
	}
	return o.items
}

// Len returns the number of collected notifications.
func (o *NotificationOutbox) Len() int {
	if o == nil {
		return 0
	}
	return len(o.items)
}

func (o *NotificationOutbox) add(n models.Notification) {
	if o == nil {
		return
	}
	o.items = append(o.items, n)
}

// NotificationEmitter builds notification rows for progression events.
type NotificationEmitter struct {
	repo       notificationStore
	dispatcher notificationDispatcher
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationEmitter constructs a NotificationEmitter. dispatcher may be
// nil when realtime delivery is disabled.
func NewNotificationEmitter(repo notificationStore, dispatcher notificationDispatcher, metrics *MetricsService, logger *zap.Logger) *NotificationEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationEmitter{repo: repo, dispatcher: dispatcher, metrics: metrics, logger: logger, now: time.Now}
}

func (e *NotificationEmitter) build(userID string, classroom *models.Classroom, t models.NotificationType, title, message string) models.Notification {
	n := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      t,
		Title:     title,
		Message:   message,
		CreatedAt: e.now().UTC(),
	}
	if classroom != nil {
		id := classroom.ID
		n.ClassroomID = &id
	}
	return n
}

// PointsReceived notifies the student of a point change when the classroom
// opted in.
func (e *NotificationEmitter) PointsReceived(out *NotificationOutbox, student *models.StudentProfile, classroom *models.Classroom, delta models.PointDelta, reason string) {
	if !classroom.NotifyOnPoints || !student.HasAccount() || delta.IsZero() {
		return
	}
	title := "Points received"
	if delta.XP+delta.HP+delta.GP < 0 {
		title = "Points deducted"
	}
	message := "You got " + FormatDelta(delta)
	if classroom.ShowReasonToStudent && strings.TrimSpace(reason) != "" {
		message += ": " + reason
	}
	out.add(e.build(*student.UserID, classroom, models.NotificationPointsReceived, title, message))
}

// LevelUp notifies the student and the classroom teacher.
func (e *NotificationEmitter) LevelUp(out *NotificationOutbox, student *models.StudentProfile, classroom *models.Classroom, change LevelChange) {
	if !change.LeveledUp {
		return
	}
	if student.HasAccount() {
		out.add(e.build(*student.UserID, classroom, models.NotificationLevelUp, "Level up!",
			fmt.Sprintf("You reached level %d", change.Current)))
	}
	if classroom.TeacherID != "" {
		out.add(e.build(classroom.TeacherID, classroom, models.NotificationLevelUp, "Student leveled up",
			fmt.Sprintf("%s reached level %d", student.DisplayName, change.Current)))
	}
}

// MissionCompleted notifies the student that a mission is ready to claim.
func (e *NotificationEmitter) MissionCompleted(out *NotificationOutbox, student *models.StudentProfile, classroom *models.Classroom, mission models.StudentMissionDetail) {
	if !student.HasAccount() {
		return
	}
	out.add(e.build(*student.UserID, classroom, models.NotificationMissionCompleted, "Mission completed",
		fmt.Sprintf("You completed \"%s\". Claim your reward!", mission.Title)))
}

// BadgeUnlocked notifies the student of a new badge.
func (e *NotificationEmitter) BadgeUnlocked(out *NotificationOutbox, student *models.StudentProfile, classroom *models.Classroom, badge models.Badge) {
	if !student.HasAccount() {
		return
	}
	out.add(e.build(*student.UserID, classroom, models.NotificationBadgeUnlocked, "Badge unlocked",
		fmt.Sprintf("You unlocked the badge \"%s\"", badge.Name)))
}

// Flush stores the outbox in one batch and hands it to realtime delivery.
func (e *NotificationEmitter) Flush(ctx context.Context, out *NotificationOutbox) error {
	items := out.Items()
	if len(items) == 0 {
		return nil
	}
	if err := e.repo.InsertBatch(ctx, items); err != nil {
		return appErrors.Internal(err, "failed to store notifications")
	}
	for _, n := range items {
		e.metrics.RecordNotification(n.Type)
	}
	if e.dispatcher != nil {
		e.dispatcher.Dispatch(items)
	}
	return nil
}

// FormatDelta renders a delta as "+30 XP, -5 HP".
func FormatDelta(d models.PointDelta) string {
	parts := make([]string, 0, 3)
	for _, c := range d.Components() {
		parts = append(parts, fmt.Sprintf("%+d %s", c.Amount, c.Type))
	}
	return strings.Join(parts, ", ")
}
