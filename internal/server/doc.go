// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the portfolio backend over HTTP.
//
// # Endpoints
//
//   - POST   /api/chat                          - Send a chat message
//   - GET    /api/conversations                 - List conversations
//   - POST   /api/conversations                 - Create a conversation
//   - GET    /api/conversations/{id}            - Fetch one conversation
//   - DELETE /api/conversations/{id}            - Delete a conversation
//   - POST   /api/conversations/{id}/activate   - Mark a conversation active
//   - GET    /api/blog                          - List published posts
//   - GET    /api/blog/{slug}                   - Fetch one post
//   - GET    /api/blog/category/{category}      - Posts in a category
//   - POST   /api/contact/send                  - Relay a contact submission
//   - GET    /api/stats/github                  - GitHub activity snapshot
//   - POST   /api/analytics/visit               - Record a page view
//   - GET    /api/analytics/summary             - Visit totals and top pages
//   - GET    /health                            - Health check
//
// # Security Features
//
//   - Bearer token authentication with constant-time comparison
//   - CORS headers restricted to the site's origins
//   - Per-IP rate limiting
//   - Security headers (X-Content-Type-Options, X-Frame-Options, etc.)
//
// # Usage
//
//	srv := server.NewServer(8790).
//		WithController(controller).
//		WithPosts(posts)
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
package server
