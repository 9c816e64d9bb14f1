// Package models defines the core domain models for gigboard.
//
// # Records owned by the store
//
//   - User: registered account (clients posting gigs and creatives doing them)
//   - BillingCustomer: link from a user to their Stripe customer
//   - Payment: money a client has paid for a gig, owed to a creative
//   - Escrow: hold on a Payment until the client releases it
//   - Gig: a job posted to the marketplace
//   - Message: direct message between two users
//   - UsageRecord: one metered unit of activity
//
// # Derived views
//
//   - BillingEvent: one row of a user's billing history, built on every request
//     from live Stripe data and never persisted
//
// # Design Principles
//
// 1. **Minor units at rest**: amounts are stored as integer minor units (cents)
// 2. **Decimals at the edge**: conversion to decimal currency happens only when
//    building views, using shopspring/decimal
// 3. **IDs, not pointers**: relationships are expressed with ID strings
package models
