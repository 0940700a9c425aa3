package postgres

// NormalizeColumns exposes normalizeColumns to the external test package.
var NormalizeColumns = normalizeColumns
