// Package tracker provides the domain types and the pure logic of an
// investment-tracking dashboard.
//
// The core functionalities include:
//   - Performance Entries: monthly records of growth, deposits and withdrawals
//     kept in strict chronological order by (year, month).
//   - Financial Summaries: totals, average and net returns and the current
//     balance computed from a starting balance and a list of entries.
//   - Investors: investor records, each with its own performance history.
//   - Chat: messages exchanged between the administrator and an investor,
//     grouped in one conversation per investor.
//   - Data Persistence: encoding and decoding of a complete dataset to and
//     from a human-readable JSONL format.
//
// Storage, caching and the network surfaces live in sub packages (store,
// service, api); this package has no I/O besides the JSONL codecs.
package tracker
