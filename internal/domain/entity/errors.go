package entity

import "errors"

var (
	// ErrNoBarcodesDetected в кадре не найдено ни одного штрихкода.
	ErrNoBarcodesDetected = errors.New("no barcodes detected")
	// ErrIdentityUnresolved ни один кандидат не прочитался, держатель не сопоставлен.
	ErrIdentityUnresolved = errors.New("plate identity unresolved")
	// ErrCamera ошибка чтения с камеры.
	ErrCamera = errors.New("camera error")
)
