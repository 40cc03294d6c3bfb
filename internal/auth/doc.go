// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

/*
Package auth provides account signup, login and password reset, plus the HTTP
middleware that authenticates API requests.

Key Components:

  - JWTManager: session and password reset tokens signed with HMAC-SHA256
  - Service: the signup, login and reset flows against a Store and a Mailer
  - Lockout: in-memory failed login tracking with exponential backoff
  - Middleware: Bearer token authentication for protected route groups

Signup Flow:

 1. CheckEmail reports whether an address is pre-approved and unused.
 2. SendVerificationCode stores a pending signup (bcrypt password hash, team,
    6 digit code valid for VERIFICATION_CODE_TTL) and emails the code.
 3. VerifySignup creates the user with the role the address was pre-approved
    with and removes the pending signup.

Rejections such as a wrong verification code or password are returned as
sentinel errors whose text is the message code the frontend displays, for
example "verification_code_incorrect". Use Rejection to tell them apart from
infrastructure failures.

Usage Example:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    log.Fatal(err)
	}
	svc := auth.NewService(db, mailer, jwtManager, &cfg.Security)

	token, err := svc.Login(ctx, email, password)
	if msg, ok := auth.Rejection(err); ok {
	    // respond success=false with msg
	}

	r.With(auth.NewMiddleware(jwtManager).Authenticate).Get("/api/engagement/data_range", h)
*/
package auth
