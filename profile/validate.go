package profile

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("profile: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// validateDefinition runs tag validation over a definition, returning
// one FieldError per violation. Cross-field rules live in Build.
func validateDefinition(name string, def Definition) FieldErrors {
	var fields FieldErrors

	if name == "" {
		fields = append(fields, FieldError{Field: "name", Err: "This field is required"})
	}

	if err := validate.Struct(def); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			fields = append(fields, FieldError{Field: "definition", Err: err.Error()})
			return fields
		}

		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: verror.Field(),
				Err:   customErrForTag(verror.Tag(), verror),
			})
		}
	}

	return fields
}

func customErrForTag(tag string, verror validator.FieldError) string {
	switch tag {
	case "required":
		return "This field is required"
	default:
		return verror.Translate(translator)
	}
}
