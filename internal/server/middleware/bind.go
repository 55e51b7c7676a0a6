package middleware

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/cstockton/go-conv"
	"github.com/labstack/echo/v4"
	"github.com/nguyentranbao-ct/kvrp/internal/models"
)

// BindAndValidate binds body, params and query, then fields tagged
// `header:"name"` and `session:"username|guest|admin"`, and validates.
func BindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}
	if err := bindHeader(c.Request().Header, req); err != nil {
		return err
	}
	if err := bindSession(c, req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func bindHeader(header http.Header, dst any) error {
	return bindStruct(dst, "header", func(tagValue string) (any, error) {
		return header.Get(tagValue), nil
	})
}

func bindSession(c echo.Context, dst any) error {
	sess := GetSession(c)
	return bindStruct(dst, "session", func(tagValue string) (any, error) {
		switch tagValue {
		case "username":
			return sess.Username, nil
		case "guest":
			return sess.Guest, nil
		case "admin":
			return sess.Admin, nil
		default:
			return nil, fmt.Errorf("binding session field %s is not supported", tagValue)
		}
	})
}

// bindStruct sets each field tagged `tagName:"tagValue"` from getValueFn.
// dst must be a pointer to a struct.
func bindStruct(dst any, tagName string, getValueFn func(tagValue string) (any, error)) error {
	ptr := reflect.ValueOf(dst)
	if ptr.Kind() != reflect.Ptr || ptr.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind %s: need a pointer to a struct, got %T", tagName, dst)
	}

	indirect := ptr.Elem()
	structType := indirect.Type()
	for i := 0; i < structType.NumField(); i++ {
		structField := structType.Field(i)
		tagValue := structField.Tag.Get(tagName)
		if tagValue == "-" || tagValue == "" {
			continue
		}

		value, err := getValueFn(tagValue)
		if err != nil {
			return err
		}
		if err := conv.Infer(indirect.Field(i), value); err != nil {
			return fmt.Errorf("cannot parse %s.%s as %s from: %#v / %s",
				structType.Name(), structField.Name, structField.Type, value, err)
		}
	}
	return nil
}
