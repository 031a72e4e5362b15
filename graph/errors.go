package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/gqlgen/graphql"
	"github.com/VitaminP8/blogexpress/internal/apperr"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

const internalMessage = "internal server error"

// ErrorPresenter переводит apperr.Error в ошибку GraphQL: message, extensions.code
// и, для ошибок валидации, extensions.data. Внутренние ошибки логируются и скрываются.
func ErrorPresenter(logger *zap.Logger) graphql.ErrorPresenterFunc {
	return func(ctx context.Context, err error) *gqlerror.Error {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			// ошибки разбора аргументов и прочие ошибки gqlgen отдаем как есть
			var gqlErr *gqlerror.Error
			if errors.As(err, &gqlErr) && gqlErr.Unwrap() == nil {
				return gqlErr
			}
			logger.Error("unexpected resolver error", zap.Error(err))
			return gqlerror.ErrorPathf(graphql.GetPath(ctx), internalMessage)
		}

		if appErr.Kind == apperr.KindInternal {
			logger.Error("internal error", zap.Error(err))
		}

		out := &gqlerror.Error{
			Message:    appErr.Message,
			Path:       graphql.GetPath(ctx),
			Extensions: map[string]interface{}{"kind": string(appErr.Kind)},
		}
		if appErr.Kind == apperr.KindInternal {
			out.Message = internalMessage
		}
		if appErr.Code != 0 {
			out.Extensions["code"] = appErr.Code
		}
		if len(appErr.Data) > 0 {
			out.Extensions["data"] = appErr.Data
		}
		return out
	}
}

// RecoverFunc логирует панику резолвера и возвращает клиенту внутреннюю ошибку.
func RecoverFunc(logger *zap.Logger) graphql.RecoverFunc {
	return func(ctx context.Context, p interface{}) error {
		logger.Error("resolver panic", zap.String("panic", fmt.Sprint(p)), zap.Stack("stack"))
		return apperr.Internal("panic in resolver", fmt.Errorf("%v", p))
	}
}
