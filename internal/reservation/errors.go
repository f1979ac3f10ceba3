package reservation

import "errors"

var (
	// ErrInvalidDateRange 日期非法（start > end 或格式错误）。
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrVehicleNotFound 目标车辆不存在。
	ErrVehicleNotFound = errors.New("vehicle not found")
	// ErrReservationNotFound 预订不存在。
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrVehicleUnavailable 车辆不可预订（区间冲突或已整车下架）。
	ErrVehicleUnavailable = errors.New("vehicle unavailable for the requested dates")
	// ErrUnauthorized 当前用户无权操作该预订。
	ErrUnauthorized = errors.New("not allowed to modify this reservation")
	// ErrInvalidStatus 非法状态值或不允许的状态流转。
	ErrInvalidStatus = errors.New("invalid reservation status")
	// ErrConflict 并发写冲突（同一车辆同一区间被抢先占用）。
	ErrConflict = errors.New("reservation conflicts with a concurrent booking")
)
