// Package calsync pushes task changes to a calendar service.
//
// Every store mutation leaves an entry in the outbox (see [store.Outbox]).
// A [Processor] drains that outbox in order and mirrors each change to a
// calendar speaking the Google Calendar v3 events API:
//
//	CREATE  POST   /calendars/{calendarId}/events
//	UPDATE  PATCH  /calendars/{calendarId}/events/{eventId}
//	DELETE  DELETE /calendars/{calendarId}/events/{eventId}
//
// Successful operations are acknowledged and the returned event id is
// recorded on the task. A failed operation stays queued with its try count
// bumped, and processing stops there so later changes never overtake it.
// After [store.MaxTries] failures the store drops the operation.
//
// Rate limits, 5xx responses and timeouts are retried in place with
// [httputil.Retry] before an operation counts as failed.
//
// # Usage
//
//	client := calsync.NewClient(calsync.Config{
//	    CalendarID: "primary",
//	    Token:      tokens.Token,
//	})
//	res, err := calsync.NewProcessor(st, client).Run(ctx)
package calsync
