// Package userbase provides an embeddable identity core: admin issued
// invitation codes that gate account creation, pluggable credential schemes,
// and sessions with administrative impersonation.
//
// Invitations:
//   - InvitationLedger generates, lists, sends, cancels and accepts codes.
//     Lifecycle changes go through ApplyInvitationEvent, a pure function over
//     Invitation values. Acceptance is a single conditional write, so exactly
//     one of several concurrent registrations consumes a code.
//
// Schemes:
//   - AuthenticationModule is implemented per credential scheme and
//     registered in a ModuleRegistry. Modules return Outcome values that carry
//     either a result or field keyed errors; activity recording failures ride
//     along as warnings.
//
// Sessions:
//   - SessionCoordinator signs HS256 tokens and keeps live sessions in a
//     SessionStore so they can be revoked. Sessions issued for credentials
//     that require a reset carry PendingReset and are only accepted by
//     Service.CompletePasswordReset.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
package userbase
