/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"context"
	"fmt"

	"library-ledger-go/internal/store"

	"go.uber.org/zap"
)

// UserInfo represents simplified user information for command-line utilities
type UserInfo struct {
	Id       string
	Fullname string
	Email    string
	Role     string
}

// InitializeUsers retrieves users based on an optional email filter and an
// optional role filter ("author", "reader", or empty for all).
func InitializeUsers(ctx context.Context, dbService store.LedgerStore, emailFilter, roleFilter string, logger *zap.Logger) ([]UserInfo, error) {
	var users []UserInfo

	if emailFilter != "" {
		logger.Info("Looking up user by email", zap.String("email", emailFilter))
		user, err := dbService.GetUserByEmail(ctx, emailFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		if roleFilter != "" && user.Role != roleFilter {
			return nil, fmt.Errorf("user %s has role %q, want %q", emailFilter, user.Role, roleFilter)
		}
		users = append(users, UserInfo{
			Id:       user.Id,
			Fullname: user.Fullname,
			Email:    user.Email,
			Role:     user.Role,
		})
	} else {
		allUsers, err := dbService.GetUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		for _, u := range allUsers {
			if roleFilter != "" && u.Role != roleFilter {
				continue
			}
			users = append(users, UserInfo{
				Id:       u.Id,
				Fullname: u.Fullname,
				Email:    u.Email,
				Role:     u.Role,
			})
		}
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
