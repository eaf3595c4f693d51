package ddl

import "strings"

// TypeRule maps a schema type onto a dialect type.
type TypeRule struct {
	Name string
	// KeepParam carries the source parameter ("50" in varchar(50)) over.
	KeepParam bool
	// DefaultParam is used when KeepParam is set and the source has none.
	DefaultParam string
}

func keep(name, def string) TypeRule { return TypeRule{Name: name, KeepParam: true, DefaultParam: def} }

func fixed(name string) TypeRule { return TypeRule{Name: name} }

// TranslateType maps a schema data type and parameter to the dialect type.
// Unrecognized types map to the dialect fallback.
func (d *Dialect) TranslateType(dataType, param string) string {
	rule, ok := d.Types[strings.ToLower(strings.TrimSpace(dataType))]
	if !ok {
		return d.Fallback
	}
	if !rule.KeepParam {
		return rule.Name
	}
	if param == "" {
		param = rule.DefaultParam
	}
	if param == "" {
		return rule.Name
	}
	return rule.Name + "(" + param + ")"
}

var mysqlTypes = map[string]TypeRule{
	"int":         fixed("INT"),
	"integer":     fixed("INT"),
	"int4":        fixed("INT"),
	"bigint":      fixed("BIGINT"),
	"int8":        fixed("BIGINT"),
	"smallint":    fixed("SMALLINT"),
	"tinyint":     fixed("TINYINT"),
	"serial":      fixed("INT"),
	"bigserial":   fixed("BIGINT"),
	"bool":        fixed("TINYINT(1)"),
	"boolean":     fixed("TINYINT(1)"),
	"varchar":     keep("VARCHAR", "255"),
	"string":      keep("VARCHAR", "255"),
	"char":        keep("CHAR", "1"),
	"text":        fixed("TEXT"),
	"mediumtext":  fixed("MEDIUMTEXT"),
	"longtext":    fixed("LONGTEXT"),
	"decimal":     keep("DECIMAL", "10,2"),
	"numeric":     keep("DECIMAL", "10,2"),
	"float":       fixed("FLOAT"),
	"real":        fixed("DOUBLE"),
	"double":      fixed("DOUBLE"),
	"date":        fixed("DATE"),
	"datetime":    fixed("DATETIME"),
	"timestamp":   fixed("TIMESTAMP"),
	"timestamptz": fixed("TIMESTAMP"),
	"time":        fixed("TIME"),
	"json":        fixed("JSON"),
	"jsonb":       fixed("JSON"),
	"uuid":        fixed("CHAR(36)"),
	"blob":        fixed("BLOB"),
	"bytea":       fixed("BLOB"),
	"binary":      keep("BINARY", "16"),
	"varbinary":   keep("VARBINARY", "255"),
}

var postgresTypes = map[string]TypeRule{
	"int":         fixed("INTEGER"),
	"integer":     fixed("INTEGER"),
	"int4":        fixed("INTEGER"),
	"bigint":      fixed("BIGINT"),
	"int8":        fixed("BIGINT"),
	"smallint":    fixed("SMALLINT"),
	"tinyint":     fixed("SMALLINT"),
	"serial":      fixed("SERIAL"),
	"bigserial":   fixed("BIGSERIAL"),
	"bool":        fixed("BOOLEAN"),
	"boolean":     fixed("BOOLEAN"),
	"varchar":     keep("VARCHAR", ""),
	"string":      keep("VARCHAR", ""),
	"char":        keep("CHAR", "1"),
	"text":        fixed("TEXT"),
	"mediumtext":  fixed("TEXT"),
	"longtext":    fixed("TEXT"),
	"decimal":     keep("NUMERIC", ""),
	"numeric":     keep("NUMERIC", ""),
	"float":       fixed("REAL"),
	"real":        fixed("REAL"),
	"double":      fixed("DOUBLE PRECISION"),
	"date":        fixed("DATE"),
	"datetime":    fixed("TIMESTAMP"),
	"timestamp":   fixed("TIMESTAMP"),
	"timestamptz": fixed("TIMESTAMPTZ"),
	"time":        fixed("TIME"),
	"json":        fixed("JSON"),
	"jsonb":       fixed("JSONB"),
	"uuid":        fixed("UUID"),
	"blob":        fixed("BYTEA"),
	"bytea":       fixed("BYTEA"),
	"binary":      fixed("BYTEA"),
	"varbinary":   fixed("BYTEA"),
}

var oracleTypes = map[string]TypeRule{
	"int":         fixed("NUMBER"),
	"integer":     fixed("NUMBER"),
	"int4":        fixed("NUMBER"),
	"bigint":      fixed("NUMBER(19)"),
	"int8":        fixed("NUMBER(19)"),
	"smallint":    fixed("NUMBER(5)"),
	"tinyint":     fixed("NUMBER(3)"),
	"serial":      fixed("NUMBER"),
	"bigserial":   fixed("NUMBER(19)"),
	"bool":        fixed("NUMBER(1)"),
	"boolean":     fixed("NUMBER(1)"),
	"varchar":     keep("VARCHAR2", "255"),
	"string":      keep("VARCHAR2", "255"),
	"char":        keep("CHAR", "1"),
	"text":        fixed("CLOB"),
	"mediumtext":  fixed("CLOB"),
	"longtext":    fixed("CLOB"),
	"decimal":     keep("NUMBER", ""),
	"numeric":     keep("NUMBER", ""),
	"float":       fixed("BINARY_FLOAT"),
	"real":        fixed("BINARY_FLOAT"),
	"double":      fixed("BINARY_DOUBLE"),
	"date":        fixed("DATE"),
	"datetime":    fixed("TIMESTAMP"),
	"timestamp":   fixed("TIMESTAMP"),
	"timestamptz": fixed("TIMESTAMP WITH TIME ZONE"),
	"time":        fixed("TIMESTAMP"),
	"json":        fixed("CLOB"),
	"jsonb":       fixed("CLOB"),
	"uuid":        fixed("VARCHAR2(36)"),
	"blob":        fixed("BLOB"),
	"bytea":       fixed("BLOB"),
	"binary":      keep("RAW", "16"),
	"varbinary":   keep("RAW", "255"),
}

var sqlServerTypes = map[string]TypeRule{
	"int":         fixed("INT"),
	"integer":     fixed("INT"),
	"int4":        fixed("INT"),
	"bigint":      fixed("BIGINT"),
	"int8":        fixed("BIGINT"),
	"smallint":    fixed("SMALLINT"),
	"tinyint":     fixed("TINYINT"),
	"serial":      fixed("INT"),
	"bigserial":   fixed("BIGINT"),
	"bool":        fixed("BIT"),
	"boolean":     fixed("BIT"),
	"varchar":     keep("NVARCHAR", "255"),
	"string":      keep("NVARCHAR", "255"),
	"char":        keep("NCHAR", "1"),
	"text":        fixed("NVARCHAR(MAX)"),
	"mediumtext":  fixed("NVARCHAR(MAX)"),
	"longtext":    fixed("NVARCHAR(MAX)"),
	"decimal":     keep("DECIMAL", "18,2"),
	"numeric":     keep("DECIMAL", "18,2"),
	"float":       fixed("FLOAT"),
	"real":        fixed("REAL"),
	"double":      fixed("FLOAT"),
	"date":        fixed("DATE"),
	"datetime":    fixed("DATETIME2"),
	"timestamp":   fixed("DATETIME2"),
	"timestamptz": fixed("DATETIMEOFFSET"),
	"time":        fixed("TIME"),
	"json":        fixed("NVARCHAR(MAX)"),
	"jsonb":       fixed("NVARCHAR(MAX)"),
	"uuid":        fixed("UNIQUEIDENTIFIER"),
	"blob":        fixed("VARBINARY(MAX)"),
	"bytea":       fixed("VARBINARY(MAX)"),
	"binary":      keep("BINARY", "16"),
	"varbinary":   keep("VARBINARY", "MAX"),
}
