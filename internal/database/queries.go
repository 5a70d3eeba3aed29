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

package database

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, fullname, email, role, earnings, earnings_version, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, fullname, email, role) VALUES (?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, fullname, email, role, earnings, earnings_version, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, fullname, email, role, earnings, earnings_version, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	queryGetAuthorEarnings = `
		SELECT earnings
		FROM users
		WHERE id = ? AND active = 1`

	queryGetEarningsForUpdate = `
		SELECT earnings, earnings_version
		FROM users
		WHERE id = ? AND active = 1`

	queryUpdateEarnings = `
		UPDATE users
		SET earnings = ?, earnings_version = earnings_version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND earnings_version = ?`

	// Book queries
	queryInsertBook = `
		INSERT INTO books (id, name, description, genre, price, available_copies, author_id, thumbnail_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetBookById = `
		SELECT id, name, description, genre, price, available_copies, author_id, thumbnail_url, created_at, updated_at
		FROM books
		WHERE id = ?`

	queryGetBooksByAuthor = `
		SELECT id, name, description, genre, price, available_copies, author_id, thumbnail_url, created_at, updated_at
		FROM books
		WHERE author_id = ?
		ORDER BY created_at DESC`

	queryDecrementCopies = `
		UPDATE books
		SET available_copies = available_copies - 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_copies > 0`

	// Payment ledger queries
	queryCheckSettledPayment = `
		SELECT id FROM payments WHERE order_id = ? AND payment_id = ? AND status = 'paid' LIMIT 1`

	queryInsertPendingPayment = `
		INSERT INTO payments (id, user_id, author_id, book_id, amount, currency, order_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'pending')`

	queryGetPendingByOrder = `
		SELECT book_id, user_id FROM payments WHERE order_id = ? AND status = 'pending' LIMIT 1`

	querySettlePendingPayment = `
		UPDATE payments
		SET payment_id = ?, amount = ?, currency = ?, status = 'paid', settled_at = ?
		WHERE order_id = ? AND status = 'pending'`

	queryInsertPaidPayment = `
		INSERT INTO payments (id, user_id, author_id, book_id, amount, currency, payment_id, order_id, status, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'paid', ?)`

	queryGetPaymentByOrderAndId = `
		SELECT id, user_id, author_id, book_id, amount, currency, payment_id, order_id, status, created_at, settled_at
		FROM payments
		WHERE order_id = ? AND payment_id = ?`

	queryGetAuthorSales = `
		SELECT p.id, p.user_id, p.author_id, p.book_id, p.amount, p.currency, p.payment_id, p.order_id, p.status,
		       p.created_at, p.settled_at,
		       b.id, b.name, b.genre, b.price, b.thumbnail_url,
		       u.id, u.fullname, u.email
		FROM payments p
		LEFT JOIN books b ON b.id = p.book_id
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.author_id = ? AND p.status = 'paid'
		ORDER BY p.created_at DESC`

	queryGetUserPurchases = `
		SELECT p.id, p.user_id, p.author_id, p.book_id, p.amount, p.currency, p.payment_id, p.order_id, p.status,
		       p.created_at, p.settled_at,
		       b.id, b.name, b.genre, b.price, b.thumbnail_url,
		       u.id, u.fullname, u.email
		FROM payments p
		LEFT JOIN books b ON b.id = p.book_id
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.user_id = ? AND p.status = 'paid'
		ORDER BY p.created_at DESC`

	queryExpirePendingOrders = `
		UPDATE payments
		SET status = 'failed'
		WHERE status = 'pending' AND created_at < ?`

	queryGetPaidAmountsForAuthor = `
		SELECT amount
		FROM payments
		WHERE author_id = ? AND status = 'paid'`

	// Borrow ledger queries
	queryCheckActiveBorrow = `
		SELECT id FROM borrows WHERE user_id = ? AND book_id = ? AND returned = 0 LIMIT 1`

	queryGetActiveBorrow = `
		SELECT id, borrowed_at FROM borrows WHERE user_id = ? AND book_id = ? AND returned = 0 LIMIT 1`

	queryInsertBorrow = `
		INSERT INTO borrows (id, user_id, book_id, returned) VALUES (?, ?, ?, 0)`

	queryReturnBorrow = `
		UPDATE borrows
		SET returned = 1, returned_at = ?
		WHERE user_id = ? AND book_id = ? AND returned = 0`

	queryGetBorrowsByUser = `
		SELECT t.id, t.user_id, t.book_id, t.returned, t.borrowed_at, t.returned_at,
		       b.id, b.name, b.genre, b.price, b.thumbnail_url,
		       a.id, a.fullname, a.email
		FROM borrows t
		LEFT JOIN books b ON b.id = t.book_id
		LEFT JOIN users a ON a.id = b.author_id
		WHERE t.user_id = ? AND t.returned = ?
		ORDER BY t.borrowed_at DESC`

	queryCountActiveBorrowsForAuthor = `
		SELECT COUNT(*)
		FROM borrows t
		JOIN books b ON b.id = t.book_id
		WHERE b.author_id = ? AND t.returned = 0`
)
