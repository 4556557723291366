// Package http exposes the medication tracker over a JSON API.
//
// Public endpoints:
//   - POST /accounts: registers an account and its primary profile. Body:
//     {"email","password","display_name","profile_name"}.
//   - POST /sessions: issues a session token. Body: {"email","password"}. The token is
//     returned in the body, the `X-Session-Token` header and a `session_token` cookie.
//   - GET /meal-periods: the meal-period catalog with labels and reminder hints.
//
// Every other endpoint requires a session token in the Authorization bearer header or
// the session cookie:
//   - DELETE /sessions/current: signs out and stops the session's reminders.
//   - GET|POST /profiles, PUT|DELETE /profiles/{id}: profile management.
//   - POST /profiles/{id}/activate, DELETE /profiles/active: choose the profile the
//     session acts for. Activating a profile with alarms enabled starts reminders.
//   - GET|POST /profiles/{id}/medications, PUT|DELETE /profiles/{id}/medications/{mid}:
//     medications; DELETE deactivates and keeps dose history.
//   - GET /profiles/{id}/timetable?date=YYYY-MM-DD: the reconciled day grouped by meal
//     period. POST /profiles/{id}/timetable/actions applies take, mark_missed or skip.
//   - GET|POST /profiles/{id}/appointments, PUT|DELETE /profiles/{id}/appointments/{aid}.
//   - GET /profiles/{id}/notifications: drains reminders raised for the profile.
//   - GET /drugs/suggestions?q=: drug-name suggestions for the medication form.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
