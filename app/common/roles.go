package common

// FieldRole is an abstract chart input slot which has to be bound to a
// result column before anything can be drawn.
type FieldRole string

const (
	RoleSlice  FieldRole = "slice"
	RoleValue  FieldRole = "value"
	RoleSeries FieldRole = "series"
	RolePeriod FieldRole = "period"
)

func (r FieldRole) Valid() bool {
	switch r {
	case RoleSlice, RoleValue, RoleSeries, RolePeriod:
		return true
	}
	return false
}

// DataType of a result column, as reported by the data source.
type DataType string

const (
	TypeString   DataType = "string"
	TypeInt      DataType = "int"
	TypeFloat    DataType = "float"
	TypeBool     DataType = "bool"
	TypeDate     DataType = "date"
	TypeDateTime DataType = "date-time"
	TypeUnknown  DataType = "unknown"
)

func (t DataType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

func (t DataType) IsText() bool {
	return t == TypeString
}
