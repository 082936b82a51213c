// Package store runs compiled filters against SQLite.
//
// The store is deliberately thin: it opens a database with the required
// pragmas, loads fixture scripts, and turns result rows into ir.IRObject
// values. Query text always comes from querysql, so every operand reaches
// the driver as a bound parameter.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Rows are returned in the order the query produced them. querysql always
// orders by the primary key, so filter results are deterministic.
package store
