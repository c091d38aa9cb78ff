package main

// General API documentation for the device simulator served by `rgbctl sim`.
// The handlers in internal/devsim carry the per-route annotations.
//
// @title           rgbctl device simulator
// @version         1.0
// @description     Event-stream endpoints of an RGB controller, served without hardware.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
