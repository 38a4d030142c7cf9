package operators

import "github.com/kasugasql/immutaschema/pkg/types"

// driverToInt64 widens a substrate driver value known to be integral.
func driverToInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// driverToSqlValue converts one substrate driver value back to a typed
// SqlValue. The column's declared SqlType disambiguates numeric width;
// NULL and booleans/text are self-describing from the driver value alone.
func driverToSqlValue(v interface{}, declared types.SqlType) types.SqlValue {
	switch x := v.(type) {
	case nil:
		return types.NullValue
	case string:
		return types.NewText(x)
	case bool:
		return types.NewBoolean(x)
	case int64:
		return widenInt(x, declared)
	case int32:
		return widenInt(int64(x), declared)
	case float64:
		return widenInt(int64(x), declared)
	default:
		return types.NullValue
	}
}

func widenInt(n int64, declared types.SqlType) types.SqlValue {
	switch declared {
	case types.SmallInt:
		return types.NewSmallInt(int16(n))
	case types.Integer:
		return types.NewInteger(int32(n))
	case types.BigInt:
		return types.NewBigInt(n)
	case types.Boolean:
		return types.NewBoolean(n != 0)
	default:
		return types.NarrowestInteger(n)
	}
}

// sqlValueToDriver mirrors the substrate package's own conversion so
// operators can bind typed values into substrate calls without importing
// substrate's unexported helpers.
func sqlValueToDriver(v types.SqlValue) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Type() {
	case types.Text:
		return v.TextValue()
	case types.Boolean:
		return v.Bool()
	default:
		return v.Int64()
	}
}
