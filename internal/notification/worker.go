package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"appliance-reserve-backend/internal/model"
	"appliance-reserve-backend/internal/status"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool sends "appliance is free" web push notifications. Appliances
// become free through release or expiry, so the pool watches the change
// feed and dispatches a job per freed appliance.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// Watch dispatches a job for every event on the feed that marks an
// appliance available again. It returns when the channel closes or the
// context is cancelled.
func (wp *WorkerPool) Watch(ctx context.Context, events <-chan status.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == status.EventExpired || ev.Kind == status.EventReleased {
				wp.Dispatch(ev.RecordID)
			}
		case <-ctx.Done():
			return
		}
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case applianceID := <-wp.jobs:
			wp.sendNotificationsForAppliance(ctx, applianceID)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(applianceID int64) {
	wp.jobs <- applianceID
}

// sendNotificationsForAppliance fetches subscriptions and sends notifications for a given appliance.
func (wp *WorkerPool) sendNotificationsForAppliance(ctx context.Context, applianceID int64) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_appliance_mapping sam ON sam.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sam.appliance_id = ?", applianceID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for appliance %d: %v", applianceID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for appliance %d", len(subscriptions), applianceID)

	var appliance model.Appliance
	label := fmt.Sprintf("%d", applianceID)
	if err := wp.db.WithContext(ctx).
		Select("name").
		First(&appliance, applianceID).Error; err != nil {
		log.Printf("Error fetching appliance %d: %v", applianceID, err)
	} else if appliance.Name != "" {
		label = appliance.Name
	}

	message := fmt.Sprintf("Appliance %s is now available!", label)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
