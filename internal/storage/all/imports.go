// Package all enables every built-in result store backend. Import it for its
// side effects:
//
//	import _ "dqcheck/internal/storage/all"
//
// A binary that needs only some backends can import those packages directly.
package all

import (
	_ "dqcheck/internal/storage/mssql"
	_ "dqcheck/internal/storage/mysql"
	_ "dqcheck/internal/storage/postgres"
	_ "dqcheck/internal/storage/sqlite"
)
