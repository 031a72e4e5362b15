// Package storage содержит общие для всех хранилищ ошибки.
package storage

import "errors"

// ErrNotFound возвращается хранилищами, когда документ не найден
// (в том числе когда ID не может существовать, например невалидный ObjectID).
var ErrNotFound = errors.New("record not found")

// ErrDuplicate возвращается при нарушении уникальности (email пользователя).
var ErrDuplicate = errors.New("duplicate record")
