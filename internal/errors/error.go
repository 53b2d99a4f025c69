// Package errors holds the sentinel errors shared by the store, service and transport layers.
package errors

import "errors"

var ErrInvalidArgument = errors.New("invalid argument")
var ErrUnauthorized = errors.New("unauthorized")

var ErrProductNotFound = errors.New("product not found")
var ErrUserNotFound = errors.New("user not found")

var ErrEmailTaken = errors.New("email already registered")
var ErrInvalidCredentials = errors.New("invalid credentials")

var ErrFailedToFindProduct = errors.New("failed to find product")
var ErrFailedToListProducts = errors.New("failed to list products")
var ErrCreateProduct = errors.New("failed to create product")
var ErrUpdateProduct = errors.New("failed to update product")
var ErrDeleteProduct = errors.New("failed to delete product")

var ErrFailedToFindUser = errors.New("failed to find user")
var ErrCreateUser = errors.New("failed to create user")

var ErrToggleFavorite = errors.New("failed to toggle favorite")
var ErrFailedToReadFavorites = errors.New("failed to read favorites")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")
