// Package iam groups Relay's identity and onboarding sub-packages.
//
// # Overview
//
//   - iam/identity  Identity provider port, OTP-backed provider, session tokens
//   - iam/otp       One-time code generation, hashing and verification
//   - iam/employer  Employer profiles (one per verified email)
//   - iam/company   Companies and onboarding completion
//   - iam/pending   Per-device pending signup/login intents and redirect hints
//   - iam/session   In-process cache of hydrated sessions
//   - iam/auth      Passwordless orchestrator, HTTP handlers and middleware
//
// # Flow
//
// A visitor signs up or logs in with an email. The orchestrator asks the
// identity provider to email a code and parks the intent under the device id
// cookie. Verifying the code opens a provider session; the orchestrator then
// creates or loads the employer and answers with a redirect:
//
//	companyId == nil  →  company-setup
//	companyId != nil  →  dashboard
//
// # Layout
//
// Each sub-domain follows the same layering:
//
//	<domain>       entities, errx registry, ports
//	<domain>srv    services
//	<domain>infra  Postgres, Redis and in-memory adapters
//	<domain>api    fiber handlers
//
// iamcontainer wires the graph from a Deps struct.
//
// # Errors
//
// Every sub-domain owns an errx registry (IDENTITY, OTP, EMPLOYER, COMPANY,
// PENDING, AUTH). The orchestrator folds everything it does not recognise into
// AUTH_INTERNAL so clients only ever see AUTH_* codes.
package iam
