package utils

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

var ColumnTag = "db"

// StructTagValues lists the column names of a struct, in field order.
// Embedded structs are flattened.
func StructTagValues(input any) []string {
	targetValue := structValue(input)
	targetType := targetValue.Type()

	result := make([]string, 0, targetValue.NumField())

	for i := 0; i < targetValue.NumField(); i++ {
		field := targetType.Field(i)
		if field.PkgPath != "" {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			result = append(result, StructTagValues(targetValue.Field(i).Interface())...)
			continue
		}

		tagValue := columnName(field)
		if tagValue == "" {
			continue
		}

		result = append(result, tagValue)
	}

	return result
}

// StructToMap maps column names to field values, skipping any column
// listed in exclude.
func StructToMap(input any, exclude ...string) map[string]any {
	itemValue := structValue(input)
	itemType := itemValue.Type()

	result := make(map[string]any)

	for i := 0; i < itemValue.NumField(); i++ {
		field := itemType.Field(i)
		if field.PkgPath != "" {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			for k, v := range StructToMap(itemValue.Field(i).Interface(), exclude...) {
				result[k] = v
			}
			continue
		}

		tagValue := columnName(field)
		if tagValue == "" || slices.Contains(exclude, tagValue) {
			continue
		}

		result[tagValue] = itemValue.Field(i).Interface()
	}

	return result
}

func structValue(input any) reflect.Value {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return v
}

func columnName(field reflect.StructField) string {
	tagValue, _, _ := strings.Cut(field.Tag.Get(ColumnTag), ",")
	if tagValue == "-" {
		return ""
	}
	return tagValue
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}
